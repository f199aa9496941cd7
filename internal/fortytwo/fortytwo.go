// Package fortytwo is a minimal client for the 42 intra companies API.
package fortytwo

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL     = "https://api.intra.42.fr"
	offersPath = "/v2/offers"
	tokenPath  = "/oauth/token"
)

type Client struct {
	clientID     string
	clientSecret string
	logger       *zap.Logger

	HTTPClient *http.Client
	APIURL     string
}

func New(logger *zap.Logger, clientID, clientSecret string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
		APIURL:       apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}
