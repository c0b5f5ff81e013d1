package observe

import (
	"context"

	"github.com/MrWong99/speechwire/pkg/gummy"
)

// InstrumentedSink wraps a gummy.Sink and counts every delivered result in
// [Metrics.ResultsReceived] before forwarding it.
type InstrumentedSink struct {
	next    gummy.Sink
	metrics *Metrics
}

// NewInstrumentedSink wraps next with result counting against m.
func NewInstrumentedSink(next gummy.Sink, m *Metrics) *InstrumentedSink {
	return &InstrumentedSink{next: next, metrics: m}
}

// Recognition implements gummy.Sink.
func (s *InstrumentedSink) Recognition(r gummy.Result) {
	s.metrics.RecordResult(context.Background(), "recognition", r.IsFinal)
	s.next.Recognition(r)
}

// Translation implements gummy.Sink.
func (s *InstrumentedSink) Translation(r gummy.Result) {
	s.metrics.RecordResult(context.Background(), "translation", r.IsFinal)
	s.next.Translation(r)
}
