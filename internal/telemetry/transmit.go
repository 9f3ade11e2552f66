package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

// Transmitter sends a serialized event payload to a collection endpoint.
// Implementations are best-effort: the caller ignores returned errors
// beyond a debug log.
type Transmitter interface {
	Transmit(ctx context.Context, endpoint string, payload []byte) error
}

// WSTransmitter sends events over a short-lived WebSocket connection, the
// beacon-style channel. Each payload is one text message.
type WSTransmitter struct {
	dialer *websocket.Dialer
}

// NewWSTransmitter creates a WebSocket transmitter.
func NewWSTransmitter() *WSTransmitter {
	return &WSTransmitter{
		dialer: &websocket.Dialer{HandshakeTimeout: 2 * time.Second},
	}
}

// Transmit dials the endpoint, writes the payload, and closes.
func (t *WSTransmitter) Transmit(ctx context.Context, endpoint string, payload []byte) error {
	conn, _, err := t.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("beacon dial: %w", err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("beacon write: %w", err)
	}
	return nil
}

// HTTPTransmitter posts events as JSON, the fallback channel when no
// beacon endpoint is available.
type HTTPTransmitter struct {
	client *resty.Client
}

// NewHTTPTransmitter creates an HTTP POST transmitter.
func NewHTTPTransmitter(client *resty.Client) *HTTPTransmitter {
	return &HTTPTransmitter{client: client}
}

// Transmit posts the payload to the endpoint.
func (t *HTTPTransmitter) Transmit(ctx context.Context, endpoint string, payload []byte) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(endpoint)
	if err != nil {
		return fmt.Errorf("telemetry post: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("telemetry post: status %d", resp.StatusCode())
	}
	return nil
}

// SelectTransmitter picks the transport for the given endpoint: the beacon
// channel for ws/wss endpoints, the HTTP fallback otherwise.
func SelectTransmitter(endpoint string, client *resty.Client) Transmitter {
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		return NewWSTransmitter()
	}
	return NewHTTPTransmitter(client)
}
