package push

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

// DefaultEndpoint is the Expo push API.
const DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

// Message is a single push notification addressed to a device token.
type Message struct {
	To    string
	Title string
	Body  string
	Route string
}

// Sender delivers push notifications.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config controls the HTTP push client.
type Config struct {
	Endpoint    string
	AccessToken string
	Timeout     time.Duration
}

// ErrNoRecipient is returned when a message has no device token.
var ErrNoRecipient = errors.New("push: recipient token is empty")

type payload struct {
	To    string      `json:"to"`
	Sound string      `json:"sound"`
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Data  payloadData `json:"data"`
}

type payloadData struct {
	Route string `json:"route"`
}

// Client posts notifications to the push endpoint.
type Client struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewClient constructs a push client. A nil httpClient falls back to one using cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.AccessToken),
		client:   httpClient,
	}
}

// Send posts msg to the endpoint. The response body is not inspected beyond its status.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}

	body, err := json.Marshal(payload{
		To:    msg.To,
		Sound: "default",
		Title: msg.Title,
		Body:  msg.Body,
		Data:  payloadData{Route: msg.Route},
	})
	if err != nil {
		return fmt.Errorf("push: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-encoding", "gzip, deflate")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("push: endpoint returned %s", resp.Status)
	}
	return nil
}

// Noop discards every message.
type Noop struct{}

func (Noop) Send(context.Context, Message) error { return nil }
