// Package marketing syncs subscriber records to the marketing-list
// provider. Every operation here is a side channel: failures are logged by
// the caller and must never fail the primary user-facing request.
package marketing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable: the marketing provider is unreachable or answered with an
// error. Callers log this and move on; it is never surfaced as an HTTP
// failure of the primary operation.
var ErrUnavailable = errors.New("marketing: provider unavailable")

// Client posts subscribers to the provider's list API.
type Client struct {
	BaseURL    string
	APIKey     string
	ListID     string
	HTTPClient *http.Client
}

// NewClient creates a marketing client. The timeout is deliberately short:
// a slow marketing provider must not hold up logins or profile updates.
func NewClient(baseURL, apiKey, listID string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     apiKey,
		ListID:     listID,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Enabled reports whether the client is configured at all. An unconfigured
// client is valid; Subscribe just becomes a no-op.
func (c *Client) Enabled() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

type subscribeRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	ListID string `json:"listId,omitempty"`
}

// Subscribe adds or updates a subscriber on the configured list.
func (c *Client) Subscribe(ctx context.Context, email, name string) error {
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(subscribeRequest{Email: email, Name: name, ListID: c.ListID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/subscribers", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
