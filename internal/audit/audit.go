package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/logging"
)

// Event records one step of a login, callback or account flow.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	// FlowID correlates every event of one login attempt or callback run.
	FlowID   string            `json:"flow_id,omitempty"`
	UserID   string            `json:"user_id,omitempty"`
	Success  bool              `json:"success"`
	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	_, _ = s.writer.Write(data)
	s.mu.Unlock()
}

// LoggerSink writes events through the structured logger: successes at info,
// failures at warn.
type LoggerSink struct {
	log *logging.Logger
}

func NewLoggerSink(log *logging.Logger) *LoggerSink {
	return &LoggerSink{log: log.With("component", "audit")}
}

func (s *LoggerSink) Emit(_ context.Context, event Event) {
	kv := []any{
		"event", event.EventType,
		"flow_id", event.FlowID,
		"user_id", event.UserID,
		"success", event.Success,
	}
	if event.Error != "" {
		kv = append(kv, "error", event.Error)
	}
	for k, v := range event.Metadata {
		kv = append(kv, k, v)
	}
	if event.Success {
		s.log.Info("audit", kv...)
		return
	}
	s.log.Warn("audit", kv...)
}

// MultiSink fans an event out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, event)
		}
	}
}
