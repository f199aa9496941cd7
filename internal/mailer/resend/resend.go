// Package resend is a minimal client for the Resend email API.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/herbievine/42-job-listener/internal/errs"
	"github.com/herbievine/42-job-listener/internal/mailer"

	"go.uber.org/zap"
)

const apiURL = "https://api.resend.com"

type Client struct {
	apiKey string
	logger *zap.Logger

	HTTPClient *http.Client
	APIURL     string
}

func New(logger *zap.Logger, apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		logger: logger,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Send(ctx context.Context, email *mailer.Email) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending email via resend", zap.String("to", email.To), zap.String("subject", email.Subject))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errs.New(errs.CodeProvider, "requesting email send", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.CodeProvider, "reading send response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errs.Newf(errs.CodeProvider, "%s", providerMessage(body, resp.Status))
	}

	return nil
}

// providerMessage extracts the error message from a Resend failure body,
// falling back to the HTTP status.
func providerMessage(body []byte, status string) string {
	var failure struct {
		Message string `json:"message"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(body, &failure); err == nil && strings.TrimSpace(failure.Message) != "" {
		return failure.Message
	}
	return fmt.Sprintf("bad status: %s", status)
}
