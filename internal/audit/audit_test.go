package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcherDrainsOnClose(t *testing.T) {
	var buf bytes.Buffer
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, NewJSONWriterSink(&buf))

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "code_sent", FlowID: "f1", Success: true})
	}
	d.Close()
	d.Emit(context.Background(), Event{EventType: "late"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if ev.EventType != "code_sent" || ev.FlowID != "f1" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if d.Delivered() != 5 {
		t.Fatalf("delivered = %d", d.Delivered())
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, Event) { <-s.release }

func TestDispatcherDropIfFull(t *testing.T) {
	sink := blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "x"})
	}
	close(sink.release)
	d.Close()

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events")
	}
	if d.Dropped()+d.Delivered() != 10 {
		t.Fatalf("dropped %d + delivered %d != 10", d.Dropped(), d.Delivered())
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher")
	}
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports drops")
	}
}

func TestLoggerSinkLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := NewLoggerSink(logging.Wrap(zap.New(core), logging.Options{}))

	sink.Emit(context.Background(), Event{EventType: "login_success", Success: true, Timestamp: time.Now()})
	sink.Emit(context.Background(), Event{EventType: "code_rejected", Error: "code_rejected", Metadata: map[string]string{"status": "400"}})

	all := logs.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].Level != zap.InfoLevel || all[1].Level != zap.WarnLevel {
		t.Fatalf("unexpected levels %v %v", all[0].Level, all[1].Level)
	}
	if all[1].ContextMap()["status"] != "400" {
		t.Fatalf("metadata missing: %v", all[1].ContextMap())
	}
}

func TestMultiSink(t *testing.T) {
	a, b := NewChannelSink(1), NewChannelSink(1)
	MultiSink{a, nil, b}.Emit(context.Background(), Event{EventType: "signout"})
	if (<-a.Events()).EventType != "signout" || (<-b.Events()).EventType != "signout" {
		t.Fatal("fan-out failed")
	}
}

type panicSink struct{}

func (panicSink) Emit(_ context.Context, ev Event) {
	if ev.EventType == "boom" {
		panic("sink failure")
	}
}

func TestDispatcherSurvivesSinkPanic(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, panicSink{})
	d.Emit(context.Background(), Event{EventType: "boom"})
	d.Emit(context.Background(), Event{EventType: "ok"})
	d.Close()

	stats := d.Stats()
	if stats.Failed != 1 || stats.Delivered != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
