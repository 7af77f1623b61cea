package marketing_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benxgao/certifai-gateway/internal/gateway/marketing"
)

func TestSubscribe(t *testing.T) {
	var got struct {
		Email  string `json:"email"`
		Name   string `json:"name"`
		ListID string `json:"listId"`
	}
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/subscribers", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := marketing.NewClient(srv.URL, "key-123", "list-7")
	require.True(t, c.Enabled())

	err := c.Subscribe(context.Background(), "alice@example.com", "Alice")
	require.NoError(t, err)
	require.Equal(t, "Bearer key-123", auth)
	require.Equal(t, "alice@example.com", got.Email)
	require.Equal(t, "Alice", got.Name)
	require.Equal(t, "list-7", got.ListID)
}

func TestSubscribeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := marketing.NewClient(srv.URL, "key", "")
	err := c.Subscribe(context.Background(), "bob@example.com", "")
	require.ErrorIs(t, err, marketing.ErrUnavailable)
}

func TestSubscribeUnreachable(t *testing.T) {
	c := marketing.NewClient("http://127.0.0.1:1", "key", "")
	err := c.Subscribe(context.Background(), "bob@example.com", "")
	require.True(t, errors.Is(err, marketing.ErrUnavailable))
}

func TestSubscribeDisabled(t *testing.T) {
	c := marketing.NewClient("", "", "")
	require.False(t, c.Enabled())
	require.NoError(t, c.Subscribe(context.Background(), "x@example.com", ""))
}
