package gummy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coder/websocket"
)

// eventReceiver consumes inbound events until a terminal event or connection
// closure. It owns all reads on the connection; the outbound path owns all
// writes, so the two never contend.
type eventReceiver struct {
	conn *websocket.Conn
	sink Sink
	log  *slog.Logger
}

// run blocks until the session terminates. It returns nil on task-finished,
// a *TaskError on task-failed, ctx.Err() on cancellation, and an error
// wrapping ErrClosedPrematurely if the connection drops first.
//
// Malformed inbound messages are logged and skipped; a single bad frame never
// kills the session.
func (r *eventReceiver) run(ctx context.Context) error {
	for {
		_, data, err := r.conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("gummy: %w: %v", ErrClosedPrematurely, err)
		}

		ev, ok := parseEvent(data)
		if !ok {
			r.log.Warn("skipping malformed event", "bytes", len(data))
			continue
		}

		switch ev.Header.Event {
		case eventTaskStarted:
			// Streaming may already be in progress; the receipt order of
			// task-started relative to early audio is unspecified.
			r.log.Debug("task started", "task_id", ev.Header.TaskID)

		case eventResultGenerated:
			r.dispatch(ev)

		case eventTaskFinished:
			r.log.Debug("task finished", "task_id", ev.Header.TaskID)
			return nil

		case eventTaskFailed:
			return &TaskError{
				Code:    ev.Header.ErrorCode,
				Message: ev.Header.ErrorMessage,
			}

		default:
			r.log.Warn("ignoring unknown event", "event", ev.Header.Event)
		}
	}
}

// dispatch forwards a result-generated event to the sink: the transcription
// (if any) on the recognition path and every translation on the translation
// path. Arrival order is preserved within each kind.
func (r *eventReceiver) dispatch(ev eventEnvelope) {
	out := ev.Payload.Output
	if out.Transcription != nil {
		r.sink.Recognition(resultFromWire(*out.Transcription))
	}
	for _, tr := range out.Translations {
		r.sink.Translation(resultFromWire(tr))
	}
}
