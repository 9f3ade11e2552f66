package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cdnboot/cdnboot/internal/logging"
)

// Client logs bootstrap events locally and transmits them to the collection
// endpoint on a best-effort basis. Transmission happens when CI logging is
// enabled or the event level is "error"; error events always escape
// regardless of the enabled flag.
type Client struct {
	log         *logging.Logger
	transmitter Transmitter
	endpoint    string
	session     string
	enabled     atomic.Bool
}

// NewClient creates a telemetry client. A nil transmitter disables
// transmission entirely; local logging still happens.
func NewClient(log *logging.Logger, transmitter Transmitter, endpoint string) *Client {
	if log == nil {
		log = logging.NewNop()
	}
	return &Client{
		log:         log,
		transmitter: transmitter,
		endpoint:    endpoint,
		session:     uuid.NewString(),
	}
}

// SetCILoggingEnabled toggles event transmission for non-error levels.
func (c *Client) SetCILoggingEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// CILoggingEnabled reports whether non-error transmission is enabled.
func (c *Client) CILoggingEnabled() bool {
	return c.enabled.Load()
}

// Session returns the session identifier attached to transmitted events.
func (c *Client) Session() string {
	return c.session
}

// LogClient logs an event at the given level and transmits it when CI
// logging is enabled or the level is "error". Transmission is best-effort:
// failures are swallowed after a debug log. A nil client records nothing.
func (c *Client) LogClient(ctx context.Context, event string, detail any, level string) {
	if c == nil {
		return
	}
	serialized := SerializeForLog(detail)
	fields := []zap.Field{zap.Any("detail", serialized), zap.String("session", c.session)}

	switch level {
	case "debug":
		c.log.Debug(event, fields...)
	case "warn":
		c.log.Warn(event, fields...)
	case "error":
		c.log.Error(event, fields...)
	default:
		level = "info"
		c.log.Info(event, fields...)
	}

	if c.transmitter == nil || c.endpoint == "" {
		return
	}
	if !c.enabled.Load() && level != "error" {
		return
	}

	payload, err := sonic.Marshal(map[string]any{
		"event":     event,
		"detail":    serialized,
		"level":     level,
		"session":   c.session,
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	if err := c.transmitter.Transmit(ctx, c.endpoint, payload); err != nil {
		c.log.Debug("telemetry transmit failed", zap.Error(err))
	}
}

// Wait sleeps cooperatively for the given duration, returning early when
// the context is done. Used between probe retries.
func Wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
