package goAuthClient

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/goAuthClient/internal/fakes"
)

func TestMetricsDisabledSnapshotIsEmpty(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, b *Builder) { b.WithMetricsEnabled(false) })

	_, _ = env.engine.NewLoginFlow().Submit(context.Background(), "", "")

	snap := env.engine.MetricsSnapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsLatencyHistogramsCanBeDisabled(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, b *Builder) { b.WithLatencyHistograms(false) })

	snap := env.engine.MetricsSnapshot()
	if _, ok := snap.Histograms[MetricChannelLatency]; ok {
		t.Fatal("histogram present while disabled")
	}
	if _, ok := snap.Counters[MetricLoginSuccess]; !ok {
		t.Fatal("counters must still be collected")
	}
}

func TestMetricsConcurrentFlows(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sb.AddAccount(fakes.Account{Email: "a@x.com", Password: "secret1", Confirmed: true})

	const flows = 16
	var wg sync.WaitGroup
	wg.Add(flows)
	for i := 0; i < flows; i++ {
		go func() {
			defer wg.Done()
			_, _ = env.engine.NewLoginFlow().Submit(context.Background(), "a@x.com", "secret1")
		}()
	}
	wg.Wait()

	if got := env.engine.MetricsSnapshot().Counters[MetricLoginSuccess]; got != flows {
		t.Fatalf("expected %d successes, got %d", flows, got)
	}
}

func TestMetricIDsPartition(t *testing.T) {
	histograms := 0
	for id := MetricID(0); int(id) < MetricCount; id++ {
		if MetricIsHistogram(id) {
			histograms++
		}
	}
	if histograms != 1 {
		t.Fatalf("expected exactly one histogram id, got %d", histograms)
	}
}
