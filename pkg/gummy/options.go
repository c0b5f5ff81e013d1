package gummy

import (
	"log/slog"
	"net/http"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL overrides the WebSocket endpoint. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel sets the recognition model (e.g., "gummy-realtime-v1").
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithChunkSize sets the audio frame size in bytes. The default of 3200
// bytes is roughly 100ms at 16kHz/16-bit/mono. Values <= 0 are ignored.
func WithChunkSize(bytes int) Option {
	return func(c *Client) {
		if bytes > 0 {
			c.chunkSize = bytes
		}
	}
}

// WithUserAgent overrides the user-agent header sent on the handshake.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithoutPacing disables the real-time pacing delay between audio frames.
// Production use should keep pacing on: the service's end-of-speech silence
// detection expects near-real-time cadence. Intended for offline batch tests.
func WithoutPacing() Option {
	return func(c *Client) { c.pacing = false }
}

// WithHTTPClient sets the HTTP client used for the WebSocket handshake.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for protocol-level diagnostics.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
