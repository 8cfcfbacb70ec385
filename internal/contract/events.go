package contract

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/stellarnova/limitorder/pkg/domain"
)

// EventSink receives every event the engine emits, in emission order.
// The event schema is treated as an external wire protocol (see
// pkg/domain/events.go); implementations must not reorder or drop.
type EventSink interface {
	Emit(event domain.Event)
}

// LogSink emits events as structured log lines, the shape an external
// indexer would tail in place of decoding real chain events.
type LogSink struct{}

// NewLogSink returns a LogSink.
func NewLogSink() *LogSink { return &LogSink{} }

func (LogSink) Emit(event domain.Event) {
	switch e := event.(type) {
	case domain.OrderCreated:
		log.Info().
			Uint64("orderID", e.OrderID).
			Str("owner", e.Owner.Hex()).
			Str("fromToken", string(e.FromToken)).
			Str("fromAmount", e.FromAmount.String()).
			Str("toToken", string(e.ToToken)).
			Uint64("expiresAt", e.ExpiresAt).
			Msg("OrderCreated")
	case domain.OrderExecuted:
		log.Info().
			Uint64("orderID", e.OrderID).
			Str("owner", e.Owner.Hex()).
			Str("outputAmount", e.OutputAmount.String()).
			Msg("OrderExecuted")
	case domain.OrderExecutionFailed:
		log.Warn().
			Uint64("orderID", e.OrderID).
			Str("reason", e.Reason).
			Msg("OrderExecutionFailed")
	case domain.OrderCancelled:
		log.Info().
			Uint64("orderID", e.OrderID).
			Str("owner", e.Owner.Hex()).
			Msg("OrderCancelled")
	case domain.OrderExpired:
		log.Info().
			Uint64("orderID", e.OrderID).
			Str("owner", e.Owner.Hex()).
			Msg("OrderExpired")
	}
}

// MemorySink accumulates events for tests and for local dev's status
// surface — an append-only slice guarded by a mutex, mirroring the
// append-only contract the real event log has.
type MemorySink struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a snapshot copy of every event recorded so far.
func (s *MemorySink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// multiSink fans a single Emit out to several sinks, in order.
type multiSink struct {
	sinks []EventSink
}

// NewMultiSink combines sinks into one EventSink.
func NewMultiSink(sinks ...EventSink) EventSink {
	return &multiSink{sinks: sinks}
}

func (m *multiSink) Emit(event domain.Event) {
	for _, s := range m.sinks {
		s.Emit(event)
	}
}
