package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCountersAndHistogram(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatencyHistograms: true})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Inc(CodeSent)
		}()
	}
	wg.Wait()

	m.Observe(ChannelLatency, 10*time.Millisecond)
	m.Observe(ChannelLatency, 3*time.Second)
	m.Observe(CodeSent, time.Second)

	s := m.Snapshot()
	if s.Counters[CodeSent] != 50 {
		t.Fatalf("code sent = %d", s.Counters[CodeSent])
	}
	if _, ok := s.Counters[ChannelLatency]; ok {
		t.Fatal("histogram listed as counter")
	}
	b := s.Histograms[ChannelLatency]
	if b[0] != 1 || b[BucketCount-1] != 1 {
		t.Fatalf("unexpected buckets %v", b)
	}
	if s.Sums[ChannelLatency] != 3010*time.Millisecond {
		t.Fatalf("sum = %v", s.Sums[ChannelLatency])
	}
	if len(s.Histograms) != 1 {
		t.Fatalf("only histogram ids take samples: %v", s.Histograms)
	}
}

func TestDisabledMetrics(t *testing.T) {
	m := New(Config{})
	m.Inc(LoginSuccess)
	if m.Value(LoginSuccess) != 0 || len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled metrics recorded values")
	}

	var nilM *Metrics
	nilM.Inc(LoginSuccess)
	nilM.Observe(ChannelLatency, time.Second)
	if nilM.Enabled() {
		t.Fatal("nil metrics enabled")
	}
}
