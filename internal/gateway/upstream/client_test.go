package upstream_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/benxgao/certifai-gateway/internal/gateway/upstream"
)

func TestResolveUser(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/api/users/resolve", r.URL.Path)
			require.Equal(t, "Bearer id-token", r.Header.Get("Authorization"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "sub-1", body["subject"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"userId":"user-42"}`))
		}))
		t.Cleanup(srv.Close)

		c := upstream.NewClient(srv.URL, 0)
		id, err := c.ResolveUser(context.Background(), "id-token", "sub-1", "a@example.com")
		require.NoError(t, err)
		require.Equal(t, "user-42", id)
	})

	t.Run("unknown user", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		t.Cleanup(srv.Close)

		c := upstream.NewClient(srv.URL, 0)
		_, err := c.ResolveUser(context.Background(), "id-token", "sub-1", "")
		require.ErrorIs(t, err, upstream.ErrUserUnknown)
	})

	t.Run("empty user id treated as unknown", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"userId":""}`))
		}))
		t.Cleanup(srv.Close)

		c := upstream.NewClient(srv.URL, 0)
		_, err := c.ResolveUser(context.Background(), "id-token", "sub-1", "")
		require.ErrorIs(t, err, upstream.ErrUserUnknown)
	})

	t.Run("server error is unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(srv.Close)

		c := upstream.NewClient(srv.URL, 0)
		_, err := c.ResolveUser(context.Background(), "id-token", "sub-1", "")
		require.ErrorIs(t, err, upstream.ErrUnavailable)
	})

	t.Run("unreachable backend", func(t *testing.T) {
		c := upstream.NewClient("http://127.0.0.1:1", 500*time.Millisecond)
		_, err := c.ResolveUser(context.Background(), "id-token", "sub-1", "")
		require.ErrorIs(t, err, upstream.ErrUnavailable)
	})
}

func TestForward(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/exams/123", r.URL.Path)
		require.Equal(t, "attempt=2", r.URL.RawQuery)
		require.Equal(t, "Bearer id-token", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"answer":"b"}`, string(body))

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	c := upstream.NewClient(srv.URL, 0)

	inbound := httptest.NewRequest(http.MethodPost,
		"/api/exams/123?attempt=2", strings.NewReader(`{"answer":"b"}`))
	inbound.Header.Set("Content-Type", "application/json")

	resp, err := c.Forward(context.Background(), inbound, "api/exams/123", "id-token")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.JSONEq(t, `{"ok":true}`, string(body))
}

func TestForwardUnreachable(t *testing.T) {
	c := upstream.NewClient("http://127.0.0.1:1", 500*time.Millisecond)

	inbound := httptest.NewRequest(http.MethodGet, "/api/exams", nil)
	_, err := c.Forward(context.Background(), inbound, "api/exams", "id-token")
	require.ErrorIs(t, err, upstream.ErrUnavailable)
}
