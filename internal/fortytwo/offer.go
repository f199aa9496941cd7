package fortytwo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/herbievine/42-job-listener/internal/errs"

	"go.uber.org/zap"
)

// Offer is the raw shape returned by the companies API.
type Offer struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	LittleDescription string `json:"little_description"`
	BigDescription    string `json:"big_description"`
	Salary            string `json:"salary"`
	ContractType      string `json:"contract_type"`
	Email             string `json:"email"`
	FullAddress       string `json:"full_address"`
	CreatedAt         string `json:"created_at"`
}

// offerPayload mirrors Offer with pointer fields so that missing keys can be
// told apart from zero values during the strict batch check.
type offerPayload struct {
	ID                *int64  `json:"id"`
	Title             *string `json:"title"`
	LittleDescription *string `json:"little_description"`
	BigDescription    *string `json:"big_description"`
	Salary            *string `json:"salary"`
	ContractType      *string `json:"contract_type"`
	Email             *string `json:"email"`
	FullAddress       *string `json:"full_address"`
	CreatedAt         *string `json:"created_at"`
}

// FetchOffers returns up to limit offers from the companies API. A source
// failure or non-success status yields a fetch-coded error; any malformed
// record invalidates the whole batch with a validation-coded error.
func (c *Client) FetchOffers(ctx context.Context, limit int) ([]*Offer, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+offersPath, nil)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("page[size]", strconv.Itoa(limit))
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("fetching offers", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errs.New(errs.CodeFetch, "requesting offers", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.CodeFetch, "reading offers response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Newf(errs.CodeFetch, "bad status from offers endpoint: %s", resp.Status)
	}

	offers, err := parseOffers(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched offers", zap.Int("count", len(offers)))

	return offers, nil
}

// parseOffers is the typed parse-or-fail boundary for the source payload.
func parseOffers(body []byte) ([]*Offer, error) {
	var payload []offerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errs.New(errs.CodeValidation, "offers payload is not a list", err)
	}

	offers := make([]*Offer, 0, len(payload))
	for i, p := range payload {
		if p.ID == nil || p.Title == nil || p.LittleDescription == nil || p.BigDescription == nil ||
			p.Salary == nil || p.ContractType == nil || p.Email == nil || p.FullAddress == nil || p.CreatedAt == nil {
			return nil, errs.Newf(errs.CodeValidation, "offer at index %d is missing required fields", i)
		}

		offers = append(offers, &Offer{
			ID:                *p.ID,
			Title:             *p.Title,
			LittleDescription: *p.LittleDescription,
			BigDescription:    *p.BigDescription,
			Salary:            *p.Salary,
			ContractType:      *p.ContractType,
			Email:             *p.Email,
			FullAddress:       *p.FullAddress,
			CreatedAt:         *p.CreatedAt,
		})
	}

	return offers, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+tokenPath, nil)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("grant_type", "client_credentials")
	q.Set("client_id", c.clientID)
	q.Set("client_secret", c.clientSecret)
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", errs.New(errs.CodeFetch, "requesting access token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.Newf(errs.CodeFetch, "bad status from token endpoint: %s", resp.Status)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", errs.New(errs.CodeValidation, "decoding token response", err)
	}

	if token.AccessToken == "" {
		return "", errs.Newf(errs.CodeValidation, "token endpoint returned an empty access token")
	}

	return token.AccessToken, nil
}
