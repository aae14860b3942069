package goAuthClient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/identity"
	"github.com/MrEthical07/goAuthClient/internal/fakes"
	"github.com/MrEthical07/goAuthClient/profile"
)

type transitionLog struct {
	mu    sync.Mutex
	steps [][2]LoginState
}

func (l *transitionLog) hook(from, to LoginState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, [2]LoginState{from, to})
}

func (l *transitionLog) states() []LoginState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LoginState, 0, len(l.steps))
	for _, s := range l.steps {
		out = append(out, s[1])
	}
	return out
}

func equalStates(a, b []LoginState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoginWithoutPhoneAuthenticatesDirectly(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sb.AddAccount(fakes.Account{Email: "a@x.com", Password: "secret1", Confirmed: true})

	var log transitionLog
	flow := env.engine.NewLoginFlow(WithTransitionHook(log.hook))
	view, err := flow.Submit(context.Background(), "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if view.State != LoginAuthenticated {
		t.Fatalf("state = %v, want authenticated", view.State)
	}
	if view.SecondFactor != nil || view.Phone != "" {
		t.Fatalf("no second factor expected: %+v", view)
	}
	if want := []LoginState{LoginAuthenticating, LoginAuthenticated}; !equalStates(log.states(), want) {
		t.Fatalf("transitions = %v, want %v", log.states(), want)
	}
	if view.User == nil || view.User.Email != "a@x.com" {
		t.Fatalf("user not exposed: %+v", view.User)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 || snap.Counters[MetricSecondFactorSkipped] != 1 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}

	events := env.drainAudit()
	if !hasEvent(events, auditEventLoginSuccess, true) {
		t.Fatalf("expected login_success event, got %+v", events)
	}
	for _, ev := range events {
		if ev.FlowID != view.FlowID {
			t.Fatalf("event %s has flow id %q, want %q", ev.EventType, ev.FlowID, view.FlowID)
		}
	}
}

func TestLoginProfilePhoneRequiresCode(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.sb.AddAccount(fakes.Account{Email: "b@x.com", Password: "secret1", Confirmed: true})
	if err := env.profiles.Insert(context.Background(), profile.Profile{ID: acc.ID, Email: acc.Email, PhoneNumber: "+14155550000"}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	ctx := context.Background()

	var log transitionLog
	flow := env.engine.NewLoginFlow(WithTransitionHook(log.hook))
	view, err := flow.Submit(ctx, "b@x.com", "secret1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if view.State != LoginAwaitingSecondFactor || view.Phone != "+14155550000" {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.SecondFactor.Source != "profile" || view.SecondFactor.Challenge != ChallengeNotStarted {
		t.Fatalf("unexpected second factor %+v", view.SecondFactor)
	}

	view, err = flow.SendCode(ctx)
	if err != nil {
		t.Fatalf("SendCode: %v", err)
	}
	if view.State != LoginCodeSent || view.Message != "Verification code sent successfully!" {
		t.Fatalf("unexpected view after send %+v", view)
	}

	view, err = flow.VerifyCode(ctx, "000000")
	var cerr *ChannelError
	if !errors.As(err, &cerr) || cerr.Status != http.StatusBadRequest {
		t.Fatalf("expected ChannelError 400, got %v", err)
	}
	if view.State != LoginVerifyFailed {
		t.Fatalf("state = %v, want verify_failed", view.State)
	}
	if view.Error != "Code verification failed: Invalid verification code" {
		t.Fatalf("error = %q", view.Error)
	}
	if view.Phone != "+14155550000" || view.SecondFactor.Challenge != ChallengeFailed {
		t.Fatalf("context must survive a rejected code: %+v", view)
	}

	view, err = flow.VerifyCode(ctx, "111111")
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if view.State != LoginAuthenticated || view.SecondFactor != nil || view.Phone != "" {
		t.Fatalf("second factor context must be discarded: %+v", view)
	}

	want := []LoginState{
		LoginAuthenticating, LoginAwaitingSecondFactor,
		LoginSendingCode, LoginCodeSent,
		LoginVerifying, LoginVerifyFailed,
		LoginVerifying, LoginAuthenticated,
	}
	if !equalStates(log.states(), want) {
		t.Fatalf("transitions = %v, want %v", log.states(), want)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricCodeRejected] != 1 || snap.Counters[MetricCodeVerified] != 1 || snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}
	var samples uint64
	for _, n := range snap.Histograms[MetricChannelLatency] {
		samples += n
	}
	if samples != 3 {
		t.Fatalf("expected 3 channel latency samples, got %d", samples)
	}
}

func TestLoginMetadataPhoneIsBackfilled(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.sb.AddAccount(fakes.Account{Email: "c@x.com", Password: "secret1", Phone: "+14155550001", Confirmed: true})

	flow := env.engine.NewLoginFlow()
	view, err := flow.Submit(context.Background(), "c@x.com", "secret1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if view.State != LoginAwaitingSecondFactor || view.SecondFactor.Source != "metadata" {
		t.Fatalf("unexpected view %+v", view)
	}
	p, err := env.profiles.Get(context.Background(), acc.ID)
	if err != nil || p == nil {
		t.Fatalf("profile not backfilled: %v", err)
	}
	if p.PhoneNumber != "+14155550001" || p.Email != "c@x.com" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if env.engine.MetricsSnapshot().Counters[MetricProfileBackfill] != 1 {
		t.Fatal("backfill metric not recorded")
	}
}

func TestLoginWrongPasswordReturnsToIdle(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sb.AddAccount(fakes.Account{Email: "a@x.com", Password: "secret1", Confirmed: true})

	flow := env.engine.NewLoginFlow()
	view, err := flow.Submit(context.Background(), "a@x.com", "nope")
	var cerr *CredentialError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CredentialError, got %v", err)
	}
	if view.State != LoginIdle || view.Error != "Invalid login credentials" {
		t.Fatalf("unexpected view %+v", view)
	}

	// The user can try again from Idle.
	view, err = flow.Submit(context.Background(), "a@x.com", "secret1")
	if err != nil || view.State != LoginAuthenticated {
		t.Fatalf("retry failed: %+v %v", view, err)
	}
	if !hasEvent(env.drainAudit(), auditEventLoginFailure, false) {
		t.Fatal("expected login_failure event")
	}
}

func TestLoginEmptyCredentials(t *testing.T) {
	env := newTestEnv(t, nil)
	view, err := env.engine.NewLoginFlow().Submit(context.Background(), "", "")
	if !errors.Is(err, ErrMissingCredentials) || view.State != LoginIdle {
		t.Fatalf("unexpected %+v %v", view, err)
	}
	if env.sb.Sends() != 0 {
		t.Fatal("no remote call expected")
	}
}

func TestLoginSessionLossAbandonsAttempt(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.sb.AddAccount(fakes.Account{Email: "b@x.com", Password: "secret1", Confirmed: true})
	_ = env.profiles.Insert(context.Background(), profile.Profile{ID: acc.ID, PhoneNumber: "+14155550000"})
	ctx := context.Background()

	flow := env.engine.NewLoginFlow()
	if _, err := flow.Submit(ctx, "b@x.com", "secret1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := env.sessions.Remove(ctx); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	view, err := flow.SendCode(ctx)
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if view.State != LoginIdle || view.Phone != "" || view.SecondFactor != nil || view.User != nil {
		t.Fatalf("attempt must be discarded: %+v", view)
	}
	if view.Error != "no access token available, please login again" {
		t.Fatalf("error = %q", view.Error)
	}
	if env.sb.Sends() != 0 {
		t.Fatal("code service must not be called without a token")
	}
	if env.engine.MetricsSnapshot().Counters[MetricNoSession] != 1 {
		t.Fatal("no-session metric not recorded")
	}
}

func TestLoginSendFailureKeepsState(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.sb.AddAccount(fakes.Account{Email: "b@x.com", Password: "secret1", Confirmed: true})
	_ = env.profiles.Insert(context.Background(), profile.Profile{ID: acc.ID, PhoneNumber: "+14155550000"})
	ctx := context.Background()

	flow := env.engine.NewLoginFlow()
	if _, err := flow.Submit(ctx, "b@x.com", "secret1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	env.sb.FailSends(http.StatusBadGateway)

	view, err := flow.SendCode(ctx)
	var cerr *ChannelError
	if !errors.As(err, &cerr) || cerr.Status != http.StatusBadGateway {
		t.Fatalf("expected ChannelError 502, got %v", err)
	}
	if view.State != LoginAwaitingSecondFactor || view.Phone != "+14155550000" {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Error != "Failed to send code: failed to send verification code (502)" {
		t.Fatalf("error = %q", view.Error)
	}
}

func TestLoginInvalidTransitions(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sb.AddAccount(fakes.Account{Email: "a@x.com", Password: "secret1", Confirmed: true})
	ctx := context.Background()
	flow := env.engine.NewLoginFlow()

	if _, err := flow.SendCode(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("SendCode in idle: %v", err)
	}
	if _, err := flow.VerifyCode(ctx, "111111"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("VerifyCode in idle: %v", err)
	}
	if _, err := flow.Submit(ctx, "a@x.com", "secret1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := flow.Submit(ctx, "a@x.com", "secret1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Submit when authenticated: %v", err)
	}
	if _, err := flow.SendCode(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("SendCode when authenticated: %v", err)
	}

	oldID := flow.FlowID()
	if err := flow.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if flow.State() != LoginIdle || flow.FlowID() == oldID {
		t.Fatalf("reset must start a new attempt: %v %s", flow.State(), flow.FlowID())
	}
}

func TestLoginCallWhileInFlightIsRejected(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	idp := &blockingProvider{entered: entered, release: release}
	env := newTestEnv(t, func(_ *Config, b *Builder) { b.WithIdentityProvider(idp) })

	flow := env.engine.NewLoginFlow()
	done := make(chan error, 1)
	go func() {
		_, err := flow.Submit(context.Background(), "a@x.com", "secret1")
		done <- err
	}()
	<-entered

	if flow.State() != LoginAuthenticating {
		t.Fatalf("state = %v", flow.State())
	}
	if _, err := flow.Submit(context.Background(), "a@x.com", "secret1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("concurrent Submit: %v", err)
	}
	if err := flow.Reset(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Reset in flight: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if flow.State() != LoginAuthenticated {
		t.Fatalf("state = %v", flow.State())
	}
}

func TestLoginPanicBecomesGenericFailure(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, b *Builder) { b.WithIdentityProvider(panicProvider{}) })

	view, err := env.engine.NewLoginFlow().Submit(context.Background(), "a@x.com", "secret1")
	if err == nil {
		t.Fatal("expected error")
	}
	if view.State != LoginIdle || view.Error != "An unexpected error occurred. Please try again." {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestLoginSendRateLimited(t *testing.T) {
	_, rdb := newTestRedis(t)
	env := newTestEnv(t, func(cfg *Config, b *Builder) {
		cfg.Verification.SendLimit = CodeSendLimitConfig{Enabled: true, MaxSends: 1, Window: time.Minute}
		b.WithRedis(rdb)
	})
	acc := env.sb.AddAccount(fakes.Account{Email: "b@x.com", Password: "secret1", Confirmed: true})
	_ = env.profiles.Insert(context.Background(), profile.Profile{ID: acc.ID, PhoneNumber: "+14155550000"})
	ctx := context.Background()

	flow := env.engine.NewLoginFlow()
	if _, err := flow.Submit(ctx, "b@x.com", "secret1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := flow.SendCode(ctx); err != nil {
		t.Fatalf("first SendCode: %v", err)
	}
	view, err := flow.SendCode(ctx)
	if !errors.Is(err, ErrCodeSendRateLimited) {
		t.Fatalf("expected ErrCodeSendRateLimited, got %v", err)
	}
	if view.State != LoginCodeSent || env.sb.Sends() != 1 {
		t.Fatalf("unexpected view %+v sends=%d", view, env.sb.Sends())
	}

	// A verified code clears the budget.
	if _, err := flow.VerifyCode(ctx, fakes.IssuedCode); err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if n := env.engine.MetricsSnapshot().Counters[MetricCodeSendRateLimited]; n != 1 {
		t.Fatalf("rate limited metric = %d", n)
	}
}

type blockingProvider struct {
	panicProvider
	entered chan struct{}
	release chan struct{}
}

func (p *blockingProvider) SignInWithPassword(_ context.Context, email, _ string) (*Session, error) {
	close(p.entered)
	<-p.release
	return &Session{AccessToken: "tok", User: identity.User{ID: "8d3c2a40-0000-4000-8000-000000000001", Email: email}}, nil
}

// panicProvider panics on every call it is not expected to receive.
type panicProvider struct{}

func (panicProvider) SignUp(context.Context, identity.SignUpParams) (*identity.SignUpResult, error) {
	panic("SignUp")
}
func (panicProvider) SignInWithPassword(context.Context, string, string) (*Session, error) {
	panic("SignInWithPassword")
}
func (panicProvider) GetSession(context.Context) (*Session, error) { return nil, nil }
func (panicProvider) SetSession(context.Context, string, string) (*Session, error) {
	panic("SetSession")
}
func (panicProvider) GetUser(context.Context) (*User, error) { panic("GetUser") }
func (panicProvider) SignOut(context.Context) error          { return nil }
