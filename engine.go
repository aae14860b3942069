package goAuthClient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/internal/limiters"
	"github.com/MrEthical07/goAuthClient/internal/logging"
	"github.com/MrEthical07/goAuthClient/internal/metrics"
)

// Engine runs login, callback and account flows against its collaborators.
//
// Engine methods are safe for concurrent use. A [LoginFlow] obtained from
// [Engine.NewLoginFlow] is one user's login attempt and serializes its own
// calls.
type Engine struct {
	config      Config
	identity    IdentityProvider
	profiles    ProfileStore
	channel     CodeChannel
	sendLimiter *limiters.CodeSendLimiter
	navigator   Navigator
	scheduler   Scheduler
	log         *logging.Logger
	audit       *audit.Dispatcher
	metrics     *metrics.Metrics

	closers   []func() error
	closeOnce sync.Once
}

// Close drains the audit dispatcher and releases connections the engine
// opened itself. Collaborators passed to the Builder are left open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.audit.Close()
		e.closeResources()
		e.log.Sync()
	})
}

func (e *Engine) closeResources() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.log.Warn("close resource", "error", err)
		}
	}
	e.closers = nil
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current metric values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return metrics.New(metrics.Config{}).Snapshot()
	}
	return e.metrics.Snapshot()
}

// Identity returns the identity provider the engine uses.
func (e *Engine) Identity() IdentityProvider {
	if e == nil {
		return nil
	}
	return e.identity
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	return time.Now()
}

/*
====================================
FLOW DEPENDENCIES
====================================
*/

func (e *Engine) authenticateDeps() flows.AuthenticateDeps {
	return flows.AuthenticateDeps{SignIn: e.identity.SignInWithPassword}
}

func (e *Engine) secondFactorDeps() flows.SecondFactorDeps {
	return flows.SecondFactorDeps{
		GetProfile:    e.profiles.Get,
		UpsertProfile: e.profiles.Upsert,
	}
}

func (e *Engine) ensureProfileDeps() flows.EnsureProfileDeps {
	return flows.EnsureProfileDeps{
		GetProfile:    e.profiles.Get,
		InsertProfile: e.profiles.Insert,
	}
}

func (e *Engine) codeChannelDeps() flows.CodeChannelDeps {
	deps := flows.CodeChannelDeps{
		Send: func(ctx context.Context, phone string) error {
			_, err := e.channel.SendCode(ctx, phone)
			return err
		},
		Verify: func(ctx context.Context, phone, code string) error {
			_, err := e.channel.VerifyCode(ctx, phone, code)
			return err
		},
		ObserveLatency: func(_ string, d time.Duration) {
			e.metrics.Observe(metrics.ChannelLatency, d)
		},
		Now: e.now,
	}
	if e.sendLimiter != nil {
		deps.CheckSendLimit = e.sendLimiter.Check
		deps.ResetSendLimit = e.sendLimiter.Reset
	}
	return deps
}

// userMessage is the text shown for a failed step. Provider and channel
// messages pass through unchanged; anything unexpected becomes generic.
func userMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		credErr    *CredentialError
		channelErr *ChannelError
		profileErr *ProfileStoreError
	)
	switch {
	case errors.As(err, &credErr):
		return credErr.Message
	case errors.As(err, &channelErr):
		return channelErr.Message
	case errors.As(err, &profileErr):
		return "Failed to load profile: " + profileErr.Err.Error()
	case errors.Is(err, ErrNoSession):
		return ErrNoSession.Error()
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrMissingPhone),
		errors.Is(err, ErrMissingCode),
		errors.Is(err, ErrInvalidPhone),
		errors.Is(err, ErrInvalidTransition):
		return err.Error()
	case errors.Is(err, ErrCodeSendRateLimited):
		return "Too many verification codes requested. Please wait before trying again."
	default:
		return "An unexpected error occurred. Please try again."
	}
}
