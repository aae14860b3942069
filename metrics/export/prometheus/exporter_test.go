package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authflow "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/internal/fakes"
	"github.com/MrEthical07/goAuthClient/session"
	"go.uber.org/zap"
)

type fakeSource struct {
	snapshot authflow.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authflow.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters:   map[authflow.MetricID]uint64{},
			Histograms: map[authflow.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters: map[authflow.MetricID]uint64{
				authflow.MetricLoginSuccess: 7,
				authflow.MetricCodeRejected: 2,
			},
			Histograms: map[authflow.MetricID][]uint64{
				authflow.MetricChannelLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			Sums: map[authflow.MetricID]time.Duration{
				authflow.MetricChannelLatency: 1500 * time.Millisecond,
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"authflow_login_success_total 7",
		"authflow_code_rejected_total 2",
		"authflow_second_factor_required_total 0",
		`authflow_channel_latency_seconds_bucket{le="0.025"} 1`,
		`authflow_channel_latency_seconds_bucket{le="+Inf"} 36`,
		"authflow_channel_latency_seconds_sum 1.5",
		"authflow_channel_latency_seconds_count 36",
		"authflow_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters: map[authflow.MetricID]uint64{authflow.MetricLoginSuccess: 1},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRenderFromEngine(t *testing.T) {
	sb := fakes.NewSupabase(t)
	sb.AddAccount(fakes.Account{Email: "a@x.com", Password: "secret1", Confirmed: true})

	cfg := authflow.DefaultConfig()
	cfg.Provider.URL = sb.URL()
	cfg.Provider.AnonKey = fakes.AnonKey
	engine, err := authflow.New().
		WithConfig(cfg).
		WithSessionStore(session.NewMemoryStore()).
		WithLogger(zap.NewNop()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if _, err := engine.NewLoginFlow().Submit(context.Background(), "a@x.com", "secret1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	out := NewPrometheusExporter(engine).Render()
	if !strings.Contains(out, "authflow_login_success_total 1") {
		t.Fatalf("engine counters not rendered:\n%s", out)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters: map[authflow.MetricID]uint64{
				authflow.MetricLoginSuccess:         1000,
				authflow.MetricLoginFailure:         40,
				authflow.MetricCodeSent:             800,
				authflow.MetricCodeVerified:         780,
				authflow.MetricProfileBackfill:      12,
				authflow.MetricCallbackVerified:     300,
				authflow.MetricProfileCreateFailure: 1,
			},
			Histograms: map[authflow.MetricID][]uint64{
				authflow.MetricChannelLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
