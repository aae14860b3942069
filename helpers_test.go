package goAuthClient

import (
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/fakes"
	"github.com/MrEthical07/goAuthClient/profile"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type testEnv struct {
	engine   *Engine
	sb       *fakes.Supabase
	sessions *session.MemoryStore
	profiles *profile.MemoryStore
	audit    *ChannelSink
	sched    *fakeScheduler
	nav      *recordingNavigator
}

func testConfig(sb *fakes.Supabase) Config {
	cfg := DefaultConfig()
	cfg.Provider.URL = sb.URL()
	cfg.Provider.AnonKey = fakes.AnonKey
	cfg.Audit.DropIfFull = false
	cfg.Audit.BufferSize = 512
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*Config, *Builder)) *testEnv {
	t.Helper()

	env := &testEnv{
		sb:       fakes.NewSupabase(t),
		sessions: session.NewMemoryStore(),
		profiles: profile.NewMemoryStore(),
		audit:    NewChannelSink(512),
		sched:    &fakeScheduler{},
		nav:      &recordingNavigator{},
	}
	b := New().
		WithConfig(testConfig(env.sb)).
		WithSessionStore(env.sessions).
		WithProfileStore(env.profiles).
		WithLogger(zap.NewNop()).
		WithAuditSink(env.audit).
		WithScheduler(env.sched).
		WithNavigator(env.nav)
	if mutate != nil {
		mutate(&b.config, b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

// drainAudit closes the engine and returns every event it emitted.
func (env *testEnv) drainAudit() []AuditEvent {
	env.engine.Close()
	var out []AuditEvent
	for {
		select {
		case ev := <-env.audit.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func hasEvent(events []AuditEvent, eventType string, success bool) bool {
	for _, ev := range events {
		if ev.EventType == eventType && ev.Success == success {
			return true
		}
	}
	return false
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type scheduled struct {
	delay time.Duration
	fn    func()
}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []scheduled
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, scheduled{delay: d, fn: f})
}

func (s *fakeScheduler) runAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, task := range tasks {
		task.fn()
	}
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}
