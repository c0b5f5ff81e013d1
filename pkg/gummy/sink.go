package gummy

import (
	"sync"
	"time"
)

// Result is one recognition or translation segment. Non-final results for a
// time span may be superseded by a later result with the same or overlapping
// range; the client forwards every result without deduplication and leaves
// last-write-wins handling to the consumer.
type Result struct {
	// Text is the recognised or translated content.
	Text string

	// IsFinal marks a completed utterance segment.
	IsFinal bool

	// Begin and End bound the segment relative to session start.
	Begin time.Duration
	End   time.Duration

	// Lang is the result language when reported (always set for
	// translations, usually empty for recognition).
	Lang string
}

// Sink receives results as they arrive. Recognition and translation results
// each preserve arrival order, but no ordering is guaranteed across the two
// kinds. Implementations are called from the client's receive goroutine and
// should not block for long.
type Sink interface {
	// Recognition delivers a transcription segment in the source language.
	Recognition(r Result)

	// Translation delivers a translated segment in a target language.
	Translation(r Result)
}

// ChannelSink delivers results over two independent buffered channels, one
// per result kind. Consumers range over the channels while a session runs
// and call Close once the session has returned.
type ChannelSink struct {
	recognitions chan Result
	translations chan Result
	closeOnce    sync.Once
}

// NewChannelSink creates a ChannelSink with the given per-channel buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{
		recognitions: make(chan Result, buffer),
		translations: make(chan Result, buffer),
	}
}

// Recognition implements Sink.
func (s *ChannelSink) Recognition(r Result) { s.recognitions <- r }

// Translation implements Sink.
func (s *ChannelSink) Translation(r Result) { s.translations <- r }

// Recognitions returns the read side of the recognition channel.
func (s *ChannelSink) Recognitions() <-chan Result { return s.recognitions }

// Translations returns the read side of the translation channel.
func (s *ChannelSink) Translations() <-chan Result { return s.translations }

// Close closes both channels. Call only after the session has terminated;
// the client never writes to the sink after returning. Calling Close more
// than once is safe.
func (s *ChannelSink) Close() {
	s.closeOnce.Do(func() {
		close(s.recognitions)
		close(s.translations)
	})
}

// resultFromWire converts a wire-level segment into a Result.
func resultFromWire(w sentenceResult) Result {
	return Result{
		Text:    w.Text,
		IsFinal: w.SentenceEnd,
		Begin:   time.Duration(w.BeginTime) * time.Millisecond,
		End:     time.Duration(w.EndTime) * time.Millisecond,
		Lang:    w.Lang,
	}
}
