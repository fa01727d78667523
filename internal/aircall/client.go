// Package aircall delivers insight cards to live calls.
package aircall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"callcard-relay/internal/apperror"
	"callcard-relay/internal/model"
)

const (
	service      = "aircall"
	maxErrorBody = 512
)

// Client posts insight cards, authenticated with an API id/token pair.
type Client struct {
	apiID    string
	apiToken string
	baseURL  string
	client   *http.Client
}

// NewClient creates an Aircall client for baseURL (https://api.aircall.io).
func NewClient(apiID, apiToken, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiID:    apiID,
		apiToken: apiToken,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
	}
}

// SendInsightCard attaches rows to the call. It is not retried.
func (c *Client) SendInsightCard(ctx context.Context, callID string, rows []model.CardRow) error {
	payload, err := json.Marshal(model.InsightCard{Contents: rows})
	if err != nil {
		return fmt.Errorf("marshal insight card: %w", err)
	}

	path := "/v1/calls/" + url.PathEscape(callID) + "/insight_cards"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.SetBasicAuth(c.apiID, c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s POST %s: %w", service, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &apperror.APIError{
			Service:    service,
			Method:     http.MethodPost,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	return nil
}
