package gummy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrWong99/speechwire/pkg/audio"
	"github.com/coder/websocket"
)

// maxSessionAudio is the hard per-session duration ceiling enforced by the
// service. Sources known to exceed it are rejected before any frame is sent.
const maxSessionAudio = 60 * time.Second

// frameStreamer transmits a PCM source as binary frames at roughly real-time
// cadence. Servers with end-of-speech silence detection expect audio to
// arrive near playback speed; bursting a whole file can mis-segment
// utterances, so each chunk send is followed by a sleep of the chunk's
// playback duration unless pacing is disabled.
type frameStreamer struct {
	conn      *websocket.Conn
	chunkSize int
	pacing    bool
}

// stream sends src as ceil(size/chunkSize) binary frames in source order and
// returns the totals sent. It never writes control messages; sequencing
// run-task and finish-task around the audio is the caller's concern.
func (f *frameStreamer) stream(ctx context.Context, src *audio.Source) (Stats, error) {
	if d := src.Duration(); d > maxSessionAudio {
		return Stats{}, &ConfigError{
			Field:  "source",
			Reason: fmt.Sprintf("audio duration %.1fs exceeds the %.0fs session limit", d.Seconds(), maxSessionAudio.Seconds()),
			cause:  ErrSpeechTooLong,
		}
	}

	buf := make([]byte, f.chunkSize)
	var sent Stats
	for {
		n, err := io.ReadFull(src, buf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			if errors.Is(err, io.EOF) {
				return sent, nil
			}
			return sent, fmt.Errorf("gummy: read audio source: %w", err)
		}

		if werr := f.conn.Write(ctx, websocket.MessageBinary, buf[:n]); werr != nil {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			return sent, fmt.Errorf("gummy: send audio frame: %w", werr)
		}
		sent.BytesSent += int64(n)
		sent.FramesSent++

		if f.pacing {
			if serr := sleepCtx(ctx, src.Format().Duration(int64(n))); serr != nil {
				return sent, serr
			}
		}
		// A short read means the source is exhausted.
		if err != nil {
			return sent, nil
		}
	}
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
