package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/whatsorder/whatsorder-server/internal/config"
)

// Dispatcher sends outbound messages through the messaging channel.
// Failures surface to the caller; the core treats sends as fire-and-forget.
type Dispatcher interface {
	SendText(ctx context.Context, sessionID, to, text string) error
}

// Client talks to the messaging gateway HTTP API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a gateway client with a bounded send timeout
func NewClient(cfg *config.GatewayConfig) *Client {
	timeout := cfg.SendTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type sendTextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
}

// SendText sends a text message to a customer through the tenant's channel session
func (c *Client) SendText(ctx context.Context, sessionID, to, text string) error {
	body, err := json.Marshal(sendTextRequest{
		Session: sessionID,
		ChatID:  to,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sendText", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, detail)
	}

	log.Debug().
		Str("session", sessionID).
		Str("to", to).
		Msg("Message dispatched")

	return nil
}
