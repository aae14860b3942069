package goAuthClient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrEthical07/goAuthClient/internal/flows"
)

const (
	msgCodeSent     = "Verification code sent successfully!"
	msgSendFailed   = "Failed to send code: "
	msgVerifyFailed = "Code verification failed: "
)

// TransitionHook observes LoginFlow state changes. Hooks run after the flow
// releases its lock and may call View.
type TransitionHook func(from, to LoginState)

// LoginFlowOption configures a LoginFlow.
type LoginFlowOption func(*LoginFlow)

func WithTransitionHook(h TransitionHook) LoginFlowOption {
	return func(f *LoginFlow) {
		if h != nil {
			f.hooks = append(f.hooks, h)
		}
	}
}

// LoginFlow is one user's login attempt:
//
//	Idle -> Authenticating -> AwaitingSecondFactor | Authenticated
//	AwaitingSecondFactor | CodeSent | VerifyFailed -> SendingCode -> CodeSent
//	AwaitingSecondFactor | CodeSent | VerifyFailed -> Verifying -> Authenticated | VerifyFailed
//
// Only one call is processed at a time; a call arriving while another is in
// flight fails with ErrInvalidTransition. View may be called concurrently.
type LoginFlow struct {
	engine *Engine

	mu      sync.Mutex
	flowID  string
	state   LoginState
	errMsg  string
	message string
	second  *SecondFactor
	user    *User
	profile *Profile

	hooks   []TransitionHook
	pending [][2]LoginState
}

// NewLoginFlow starts a login attempt in the Idle state.
func (e *Engine) NewLoginFlow(opts ...LoginFlowOption) *LoginFlow {
	_, id := ensureFlowID(context.Background())
	f := &LoginFlow{engine: e, flowID: id, state: LoginIdle}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Submit exchanges credentials and resolves whether a second factor is
// needed. Accepted only in Idle.
func (f *LoginFlow) Submit(ctx context.Context, email, password string) (LoginView, error) {
	if f == nil || f.engine == nil {
		return LoginView{}, ErrEngineNotReady
	}
	e := f.engine

	f.mu.Lock()
	if f.state != LoginIdle {
		return f.reject()
	}
	f.errMsg, f.message = "", ""
	f.transition(LoginAuthenticating)
	f.unlockAndNotify()

	ctx = f.context(ctx)
	var (
		sess     *Session
		decision flows.Result[flows.SecondFactorDecision]
	)
	err := guard("login", func() error {
		var err error
		sess, err = flows.RunAuthenticate(ctx, email, password, e.authenticateDeps())
		if err != nil {
			return err
		}
		decision, err = flows.RunResolveSecondFactor(ctx, &sess.User, e.secondFactorDeps())
		return err
	})

	var userID string
	if sess != nil {
		userID = sess.User.ID
	}
	e.tolerated(ctx, userID, decision.Recovered)

	f.mu.Lock()
	if err != nil {
		f.transition(LoginIdle)
		f.errMsg = userMessage(err)
		f.second, f.user, f.profile = nil, nil, nil
		view := f.viewLocked()
		f.unlockAndNotify()

		e.metricInc(MetricLoginFailure)
		e.log.Info("login failed", "flow_id", flowIDFromContext(ctx), "op", flows.OpOf(err), "error", err)
		e.emitAudit(ctx, auditEventLoginFailure, false, userID, err, nil)
		return view, err
	}

	d := decision.Value
	f.user = &sess.User
	f.profile = d.Profile
	if d.Required {
		f.second = &SecondFactor{
			Required:  true,
			Phone:     d.Phone,
			Source:    d.Source.String(),
			Challenge: ChallengeNotStarted,
		}
		f.transition(LoginAwaitingSecondFactor)
	} else {
		f.second = nil
		f.transition(LoginAuthenticated)
	}
	view := f.viewLocked()
	f.unlockAndNotify()

	if d.Backfilled {
		e.metricInc(MetricProfileBackfill)
		e.emitAudit(ctx, auditEventProfileBackfill, true, userID, nil, nil)
	}
	if d.Required {
		e.metricInc(MetricSecondFactorRequired)
		e.log.Info("second factor required", "flow_id", flowIDFromContext(ctx), "user_id", userID, "phone", d.Phone, "source", d.Source.String())
		e.emitAudit(ctx, auditEventSecondFactorRequired, true, userID, nil, func() map[string]string {
			return map[string]string{"phone_source": d.Source.String()}
		})
		return view, nil
	}
	e.metricInc(MetricSecondFactorSkipped)
	e.metricInc(MetricLoginSuccess)
	e.log.Info("login succeeded", "flow_id", flowIDFromContext(ctx), "user_id", userID)
	e.emitAudit(ctx, auditEventLoginSuccess, true, userID, nil, func() map[string]string {
		return map[string]string{"second_factor": "false"}
	})
	return view, nil
}

// SendCode asks the code service to deliver a code to the phone fixed at
// credential time. On failure the flow returns to the state it was in.
func (f *LoginFlow) SendCode(ctx context.Context) (LoginView, error) {
	if f == nil || f.engine == nil {
		return LoginView{}, ErrEngineNotReady
	}
	e := f.engine

	f.mu.Lock()
	if !f.acceptsCodeStep() {
		return f.reject()
	}
	prev := f.state
	phone := f.second.Phone
	userID := f.userIDLocked()
	f.errMsg, f.message = "", ""
	f.transition(LoginSendingCode)
	f.unlockAndNotify()

	ctx = f.context(ctx)
	err := guard("send_code", func() error {
		return flows.RunSendCode(ctx, phone, e.codeChannelDeps())
	})

	f.mu.Lock()
	switch {
	case errors.Is(err, ErrNoSession):
		f.abandonLocked()
	case err != nil:
		f.transition(prev)
		f.errMsg = msgSendFailed + userMessage(err)
	default:
		f.second.Challenge = ChallengeCodeSent
		f.second.Sends++
		f.message = msgCodeSent
		f.transition(LoginCodeSent)
	}
	view := f.viewLocked()
	f.unlockAndNotify()

	switch {
	case errors.Is(err, ErrNoSession):
		e.sessionLost(ctx, userID, "send_code")
	case err != nil:
		if errors.Is(err, ErrCodeSendRateLimited) {
			e.metricInc(MetricCodeSendRateLimited)
		} else {
			e.metricInc(MetricCodeSendFailure)
		}
		e.log.Warn("send verification code failed", "flow_id", flowIDFromContext(ctx), "user_id", userID, "phone", phone, "error", err)
		e.emitAudit(ctx, auditEventCodeSendFailure, false, userID, err, nil)
	default:
		e.metricInc(MetricCodeSent)
		e.emitAudit(ctx, auditEventCodeSent, true, userID, nil, nil)
	}
	return view, err
}

// VerifyCode submits code for the pending second factor. A rejected code
// leaves the flow in VerifyFailed with the phone kept, so the user can retry
// or request another code.
func (f *LoginFlow) VerifyCode(ctx context.Context, code string) (LoginView, error) {
	if f == nil || f.engine == nil {
		return LoginView{}, ErrEngineNotReady
	}
	e := f.engine

	f.mu.Lock()
	if !f.acceptsCodeStep() {
		return f.reject()
	}
	prev := f.state
	prevChallenge := f.second.Challenge
	phone := f.second.Phone
	userID := f.userIDLocked()
	f.errMsg, f.message = "", ""
	f.second.Challenge = ChallengeCodeSubmitted
	f.transition(LoginVerifying)
	f.unlockAndNotify()

	ctx = f.context(ctx)
	var res flows.Result[struct{}]
	err := guard("verify_code", func() error {
		var err error
		res, err = flows.RunVerifyCode(ctx, phone, code, e.codeChannelDeps())
		return err
	})
	e.tolerated(ctx, userID, res.Recovered)

	f.mu.Lock()
	switch {
	case errors.Is(err, ErrNoSession):
		f.abandonLocked()
	case errors.Is(err, ErrMissingCode):
		f.second.Challenge = prevChallenge
		f.errMsg = userMessage(err)
		f.transition(prev)
	case err != nil:
		f.second.Challenge = ChallengeFailed
		f.errMsg = msgVerifyFailed + userMessage(err)
		f.transition(LoginVerifyFailed)
	default:
		f.second = nil
		f.transition(LoginAuthenticated)
	}
	view := f.viewLocked()
	f.unlockAndNotify()

	switch {
	case errors.Is(err, ErrNoSession):
		e.sessionLost(ctx, userID, "verify_code")
	case errors.Is(err, ErrMissingCode):
	case err != nil:
		e.metricInc(MetricCodeRejected)
		e.log.Info("verification code rejected", "flow_id", flowIDFromContext(ctx), "user_id", userID, "error", err)
		e.emitAudit(ctx, auditEventCodeRejected, false, userID, err, nil)
	default:
		e.metricInc(MetricCodeVerified)
		e.metricInc(MetricLoginSuccess)
		e.log.Info("login succeeded", "flow_id", flowIDFromContext(ctx), "user_id", userID)
		e.emitAudit(ctx, auditEventCodeVerified, true, userID, nil, nil)
		e.emitAudit(ctx, auditEventLoginSuccess, true, userID, nil, func() map[string]string {
			return map[string]string{"second_factor": "true"}
		})
	}
	return view, err
}

// Reset abandons the attempt and returns to Idle with a new flow id.
func (f *LoginFlow) Reset() error {
	if f == nil {
		return ErrEngineNotReady
	}
	f.mu.Lock()
	if f.state.inFlight() {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	_, f.flowID = ensureFlowID(context.Background())
	f.errMsg, f.message = "", ""
	f.second, f.user, f.profile = nil, nil, nil
	f.transition(LoginIdle)
	f.unlockAndNotify()
	return nil
}

// View returns a snapshot of the flow.
func (f *LoginFlow) View() LoginView {
	if f == nil {
		return LoginView{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

func (f *LoginFlow) State() LoginState {
	return f.View().State
}

func (f *LoginFlow) FlowID() string {
	return f.View().FlowID
}

func (f *LoginFlow) acceptsCodeStep() bool {
	if f.second == nil {
		return false
	}
	switch f.state {
	case LoginAwaitingSecondFactor, LoginCodeSent, LoginVerifyFailed:
		return true
	}
	return false
}

// reject releases the lock held by the caller and reports an invalid call.
func (f *LoginFlow) reject() (LoginView, error) {
	view := f.viewLocked()
	f.mu.Unlock()
	return view, ErrInvalidTransition
}

// abandonLocked drops the attempt after the session disappeared.
func (f *LoginFlow) abandonLocked() {
	f.second, f.user, f.profile = nil, nil, nil
	f.errMsg = ErrNoSession.Error()
	f.transition(LoginIdle)
}

func (f *LoginFlow) userIDLocked() string {
	if f.user == nil {
		return ""
	}
	return f.user.ID
}

func (f *LoginFlow) viewLocked() LoginView {
	v := LoginView{
		FlowID:  f.flowID,
		State:   f.state,
		Error:   f.errMsg,
		Message: f.message,
		User:    f.user,
		Profile: f.profile,
	}
	if f.second != nil {
		sf := *f.second
		v.SecondFactor = &sf
		v.Phone = sf.Phone
	}
	return v
}

func (f *LoginFlow) transition(to LoginState) {
	if f.state == to {
		return
	}
	f.pending = append(f.pending, [2]LoginState{f.state, to})
	f.state = to
}

func (f *LoginFlow) unlockAndNotify() {
	pending := f.pending
	f.pending = nil
	hooks := f.hooks
	f.mu.Unlock()
	for _, t := range pending {
		for _, h := range hooks {
			h(t[0], t[1])
		}
	}
}

func (f *LoginFlow) context(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if flowIDFromContext(ctx) == "" {
		f.mu.Lock()
		id := f.flowID
		f.mu.Unlock()
		ctx = WithFlowID(ctx, id)
	}
	return ctx
}

func (e *Engine) sessionLost(ctx context.Context, userID, op string) {
	e.metricInc(MetricNoSession)
	e.log.Warn("session lost during second factor", "flow_id", flowIDFromContext(ctx), "user_id", userID, "op", op)
	e.emitAudit(ctx, auditEventSessionLost, false, userID, ErrNoSession, func() map[string]string {
		return map[string]string{"op": op}
	})
}

// guard runs fn and turns a panic into an error so no flow step can take the
// caller down.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = flows.Fatal(op, fmt.Errorf("%s panicked: %v", op, r))
		}
	}()
	return fn()
}
