package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultNtfyTimeout = 10 * time.Second

// NtfyClient publishes notifications to an ntfy server.
type NtfyClient struct {
	server string
	topic  string
	client *http.Client
}

var _ Notifier = (*NtfyClient)(nil)

type ntfyMessage struct {
	Topic    string   `json:"topic"`
	Title    string   `json:"title,omitempty"`
	Message  string   `json:"message"`
	Priority int      `json:"priority,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// NewNtfyClient creates a client for server and topic.
func NewNtfyClient(server, topic string) *NtfyClient {
	return &NtfyClient{
		server: strings.TrimRight(server, "/"),
		topic:  topic,
		client: &http.Client{Timeout: defaultNtfyTimeout},
	}
}

// Send publishes the notification as JSON to the server root.
func (c *NtfyClient) Send(n Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultNtfyTimeout)
	defer cancel()
	return c.SendContext(ctx, n)
}

// SendContext is Send with a caller supplied context.
func (c *NtfyClient) SendContext(ctx context.Context, n Notification) error {
	body, err := json.Marshal(ntfyMessage{
		Topic:    c.topic,
		Title:    n.Title,
		Message:  n.Message,
		Priority: n.Priority,
		Tags:     n.Tags,
	})
	if err != nil {
		return fmt.Errorf("encoding ntfy message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending ntfy request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ntfy returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
