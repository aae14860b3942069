package goAuthClient

import (
	"context"

	"github.com/MrEthical07/goAuthClient/internal/flows"
)

const msgSignUpCheckEmail = "Check your email for a verification link."

// SignUp registers a new account. Full name and phone are stored as user
// metadata; the confirmation email links to Callback.EmailRedirectTo.
// Provider errors are returned with their message unchanged.
func (e *Engine) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	ctx, _ = ensureFlowID(ctx)

	out, err := flows.RunSignUp(ctx, flows.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
	}, flows.SignUpDeps{
		SignUp:          e.identity.SignUp,
		EmailRedirectTo: e.config.Callback.EmailRedirectTo,
	})
	if err != nil {
		e.metricInc(MetricSignUpFailure)
		e.log.Info("signup failed", "flow_id", flowIDFromContext(ctx), "email", req.Email, "error", err)
		e.emitAudit(ctx, auditEventSignUpFailure, false, "", err, nil)
		return nil, err
	}

	result := &SignUpResult{Message: msgSignUpCheckEmail}
	if out != nil {
		result.User = out.User
		result.Session = out.Session
	}
	var userID string
	if result.User != nil {
		userID = result.User.ID
	}
	e.metricInc(MetricSignUpSuccess)
	e.log.Info("signup succeeded", "flow_id", flowIDFromContext(ctx), "user_id", userID)
	e.emitAudit(ctx, auditEventSignUpSuccess, true, userID, nil, nil)
	return result, nil
}

// SignOut ends the current session at the provider and locally.
func (e *Engine) SignOut(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	ctx, _ = ensureFlowID(ctx)

	var userID string
	if sess, err := e.identity.GetSession(ctx); err == nil && sess != nil {
		userID = sess.User.ID
	}
	err := e.identity.SignOut(ctx)
	e.metricInc(MetricSignOut)
	e.emitAudit(ctx, auditEventSignOut, err == nil, userID, err, nil)
	if err != nil {
		e.log.Warn("signout failed", "flow_id", flowIDFromContext(ctx), "user_id", userID, "error", err)
	}
	return err
}

// LoadDashboard returns the signed-in user with their profile, creating the
// profile row if it does not exist yet. Profile store failures are returned.
func (e *Engine) LoadDashboard(ctx context.Context) (*DashboardView, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	ctx, _ = ensureFlowID(ctx)

	var res flows.Result[flows.DashboardOutcome]
	err := guard("dashboard", func() error {
		var err error
		res, err = flows.RunLoadDashboard(ctx, flows.DashboardDeps{
			GetUser:       e.identity.GetUser,
			EnsureProfile: e.ensureProfileDeps(),
		})
		return err
	})

	out := res.Value
	var userID string
	if out.User != nil {
		userID = out.User.ID
	}
	e.tolerated(ctx, userID, res.Recovered)
	if err != nil {
		e.log.Warn("dashboard load failed", "flow_id", flowIDFromContext(ctx), "user_id", userID, "error", err)
		e.emitAudit(ctx, auditEventDashboardLoad, false, userID, err, nil)
		return nil, err
	}

	if out.ProfileCreated {
		e.metricInc(MetricProfileCreated)
		e.emitAudit(ctx, auditEventProfileCreated, true, userID, nil, func() map[string]string {
			return map[string]string{"source": "dashboard"}
		})
	}
	e.metricInc(MetricDashboardLoaded)
	e.emitAudit(ctx, auditEventDashboardLoad, true, userID, nil, nil)

	return &DashboardView{
		User:           out.User,
		Profile:        out.Profile,
		ProfileCreated: out.ProfileCreated,
		LastSignInAt:   out.User.LastSignInAt,
		CreatedAt:      out.User.CreatedAt,
	}, nil
}
