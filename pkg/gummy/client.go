// Package gummy implements a client for the DashScope Gummy duplex streaming
// speech recognition and translation WebSocket API.
//
// One session drives a multi-phase task lifecycle over a single connection:
// a run-task control message, binary PCM audio frames paced at roughly
// real-time cadence, and a finish-task control message, while a concurrent
// receive loop decodes the inbound event stream and forwards partial/final
// recognition and translation results to a Sink. The session ends with
// exactly one terminal outcome: success, a typed failure, or cancellation.
//
// The connection carries one writer and one reader. All outbound traffic
// (control messages and audio frames, in that total order) is issued from a
// single goroutine; all inbound traffic is consumed by another.
package gummy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/MrWong99/speechwire/pkg/audio"
	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL   = "wss://dashscope.aliyuncs.com/api-ws/v1/inference"
	defaultModel     = "gummy-realtime-v1"
	defaultUserAgent = "speechwire/1.0"

	// defaultChunkSize is ~100ms of audio at 16kHz/16-bit/mono.
	defaultChunkSize = 3200
)

// Client opens recognition sessions against the inference endpoint. A Client
// is immutable after construction and safe for concurrent use; each Recognize
// call runs an independent session with a fresh task id.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	userAgent  string
	chunkSize  int
	pacing     bool
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a Client. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gummy: apiKey must not be empty")
	}
	c := &Client{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		model:     defaultModel,
		userAgent: defaultUserAgent,
		chunkSize: defaultChunkSize,
		pacing:    true,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Stats summarises the outbound audio of one session.
type Stats struct {
	// BytesSent is the total PCM payload transmitted.
	BytesSent int64

	// FramesSent is the number of binary frames transmitted.
	FramesSent int
}

// Recognize runs one full session: dial, run-task, audio frames in source
// order, finish-task, then block until the server reports task-finished or
// task-failed. Results are forwarded to sink as they arrive; the sink is
// never called after Recognize returns.
//
// Configuration problems (unsupported sample rate or format, audio longer
// than the session limit) surface as a *ConfigError before any network I/O.
// A server-side failure surfaces as a *TaskError with the code preserved
// verbatim. If the connection drops before a terminal event the returned
// error wraps ErrClosedPrematurely. Cancelling ctx stops both directions and
// returns ctx.Err(). In every case the connection is closed exactly once.
func (c *Client) Recognize(ctx context.Context, cfg StreamConfig, src *audio.Source, sink Sink) (Stats, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return Stats{}, err
	}
	if d := src.Duration(); d > maxSessionAudio {
		return Stats{}, &ConfigError{
			Field:  "source",
			Reason: fmt.Sprintf("audio duration %.1fs exceeds the %.0fs session limit", d.Seconds(), maxSessionAudio.Seconds()),
			cause:  ErrSpeechTooLong,
		}
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("gummy: dial: %w", err)
	}

	var closeOnce sync.Once
	closeConn := func() {
		closeOnce.Do(func() {
			_ = conn.Close(websocket.StatusNormalClosure, "session ended")
		})
	}
	defer closeConn()

	sess := newTaskSession(c.model)
	log := c.log.With("task_id", sess.id)

	receiver := &eventReceiver{conn: conn, sink: sink, log: log}
	streamer := &frameStreamer{conn: conn, chunkSize: c.chunkSize, pacing: c.pacing}

	var (
		stats   Stats
		recvErr error
		sendErr error
	)
	g, gctx := errgroup.WithContext(ctx)

	// Inbound path: runs for the lifetime of the session.
	g.Go(func() error {
		recvErr = receiver.run(gctx)
		return recvErr
	})

	// Outbound path: the single writer. Start control message, every audio
	// frame in order, finish control message.
	g.Go(func() error {
		sendErr = c.send(gctx, conn, sess, cfg, streamer, src, &stats, log)
		return sendErr
	})

	_ = g.Wait()
	closeConn()

	switch {
	case ctx.Err() != nil:
		// Caller-initiated cancellation or deadline wins over secondary
		// failures caused by tearing the connection down.
		return stats, ctx.Err()
	case recvErr != nil && !errors.Is(recvErr, context.Canceled):
		// The receiver knows the terminal outcome (task-failed, premature
		// close), which explains any concurrent write failure.
		return stats, recvErr
	default:
		return stats, sendErr
	}
}

// send runs the outbound path in wire order: run-task, all audio frames,
// finish-task.
func (c *Client) send(ctx context.Context, conn *websocket.Conn, sess *taskSession, cfg StreamConfig, streamer *frameStreamer, src *audio.Source, stats *Stats, log *slog.Logger) error {
	start, err := sess.begin(cfg)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, start); err != nil {
		return fmt.Errorf("gummy: send run-task: %w", err)
	}
	log.Debug("run-task sent", "model", c.model, "sample_rate", cfg.SampleRate, "format", cfg.Format)

	sent, err := streamer.stream(ctx, src)
	*stats = sent
	if err != nil {
		return err
	}
	log.Debug("audio sent", "bytes", sent.BytesSent, "frames", sent.FramesSent)

	finish, err := sess.finish()
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, finish); err != nil {
		return fmt.Errorf("gummy: send finish-task: %w", err)
	}
	return nil
}

// dial opens the WebSocket with the bearer token and protocol headers.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	headers := http.Header{}
	headers.Set("Authorization", "bearer "+c.apiKey)
	headers.Set("user-agent", c.userAgent)
	headers.Set("X-DashScope-DataInspection", "enable")

	conn, _, err := websocket.Dial(ctx, c.baseURL, &websocket.DialOptions{
		HTTPHeader: headers,
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}
