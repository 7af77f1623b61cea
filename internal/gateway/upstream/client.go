// Package upstream is the HTTP client for the backend API the gateway
// fronts. Primary operations surface failures as typed errors; the proxy
// layer relays whatever the backend answers.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrUnavailable: the backend is unreachable or timed out. Login falls
	// back to a local user id on this; the proxy maps it to 502/504.
	ErrUnavailable = errors.New("upstream: backend unavailable")

	// ErrUserUnknown: the backend answered but has no record for the
	// subject and would not create one.
	ErrUserUnknown = errors.New("upstream: user unknown")
)

// DefaultTimeout bounds every backend call. Individual call sites may
// configure a longer one, but nothing hangs past this by default.
const DefaultTimeout = 10 * time.Second

// Client talks to the backend API with a fixed per-request timeout.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a backend client. A non-positive timeout selects the
// default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type resolveUserRequest struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
}

type resolveUserResponse struct {
	UserID string `json:"userId"`
}

// ResolveUser asks the backend for the internal user id of an identity
// subject, creating the user if the backend doesn't know it yet. Transport
// failures and timeouts come back as ErrUnavailable so the caller can fall
// back instead of failing login.
func (c *Client) ResolveUser(ctx context.Context, identityToken, subject, email string) (string, error) {
	body, err := json.Marshal(resolveUserRequest{Subject: subject, Email: email})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/users/resolve", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+identityToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", errors.Join(ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var out resolveUserResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("upstream: decode resolve response: %w", err)
		}
		if out.UserID == "" {
			return "", ErrUserUnknown
		}
		return out.UserID, nil

	case resp.StatusCode == http.StatusNotFound:
		return "", ErrUserUnknown

	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)

	default:
		return "", fmt.Errorf("upstream: resolve user: unexpected status %d", resp.StatusCode)
	}
}

// Forward relays an inbound request to the backend under the given path,
// attaching the session's identity token as the bearer credential. The
// response is returned as-is for the proxy handler to relay; the caller
// owns closing the body.
func (c *Client) Forward(ctx context.Context, r *http.Request, path, identityToken string) (*http.Response, error) {
	target := c.BaseURL + "/" + strings.TrimPrefix(path, "/")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Body != nil {
		body = r.Body
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, err
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("Authorization", "Bearer "+identityToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	return resp, nil
}

// IsTimeout reports whether an ErrUnavailable was specifically a timeout,
// so the proxy can answer 504 instead of 502.
func IsTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
