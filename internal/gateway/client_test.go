package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whatsorder/whatsorder-server/internal/config"
)

func TestSendText(t *testing.T) {
	var got sendTextRequest
	var gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/sendText", r.URL.Path)
		gotKey = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(&config.GatewayConfig{URL: srv.URL, APIKey: "k-123"})

	err := client.SendText(context.Background(), "sunset-grill", "27821234567@c.us", "hello")
	require.NoError(t, err)
	require.Equal(t, "k-123", gotKey)
	require.Equal(t, "sunset-grill", got.Session)
	require.Equal(t, "27821234567@c.us", got.ChatID)
	require.Equal(t, "hello", got.Text)
}

func TestSendTextGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session not started", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(&config.GatewayConfig{URL: srv.URL})

	err := client.SendText(context.Background(), "s", "to", "text")
	require.Error(t, err)
	require.Contains(t, err.Error(), "422")
	require.Contains(t, err.Error(), "session not started")
}
