// Package audio provides the PCM audio sources consumed by the streaming
// client. A Source couples a finite byte stream of raw PCM samples with its
// format parameters so that downstream code can compute durations and chunk
// boundaries without re-parsing the underlying container.
package audio

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

// Format describes raw PCM audio: how many samples per second, how many
// interleaved channels, and how many bytes per sample.
type Format struct {
	// SampleRate in Hz (e.g., 16000).
	SampleRate int

	// Channels is the number of interleaved channels. 1 = mono.
	Channels int

	// SampleWidth is the number of bytes per sample (2 for 16-bit PCM).
	SampleWidth int
}

// BytesPerSecond returns the raw data rate of the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.SampleWidth
}

// Valid reports whether all format parameters are positive.
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0 && f.SampleWidth > 0
}

// Duration converts a byte count in this format to playback time.
func (f Format) Duration(n int64) time.Duration {
	bps := f.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(n * int64(time.Second) / int64(bps))
}

// Source is a finite, ordered stream of raw PCM bytes with a known format.
// The total size is used to check duration preconditions before any byte is
// transmitted. Size may be negative when the total length is genuinely
// unknown (e.g., live capture), in which case Duration returns 0 and callers
// cannot pre-validate length limits.
type Source struct {
	r      io.Reader
	size   int64
	format Format
}

// NewSource wraps a raw PCM reader of the given total size and format.
func NewSource(r io.Reader, size int64, format Format) (*Source, error) {
	if r == nil {
		return nil, fmt.Errorf("audio: reader must not be nil")
	}
	if !format.Valid() {
		return nil, fmt.Errorf("audio: invalid format %+v", format)
	}
	return &Source{r: r, size: size, format: format}, nil
}

// FromBytes wraps an in-memory PCM buffer. Mostly useful in tests.
func FromBytes(pcm []byte, format Format) (*Source, error) {
	return NewSource(bytes.NewReader(pcm), int64(len(pcm)), format)
}

// Read reads raw PCM bytes from the source.
func (s *Source) Read(p []byte) (int, error) { return s.r.Read(p) }

// Size returns the total PCM byte count, or a negative value when unknown.
func (s *Source) Size() int64 { return s.size }

// Format returns the PCM format of the source.
func (s *Source) Format() Format { return s.format }

// Duration returns the total playback time of the source, or 0 when the
// size is unknown.
func (s *Source) Duration() time.Duration {
	if s.size < 0 {
		return 0
	}
	return s.format.Duration(s.size)
}
