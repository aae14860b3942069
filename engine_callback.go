package goAuthClient

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthClient/internal/flows"
)

var callbackMessages = map[CallbackState]string{
	CallbackProcessing:              "Processing verification...",
	CallbackAwaitingEmailClick:      "Please check your email and click the verification link.",
	CallbackVerificationUnconfirmed: "Unable to confirm verification status. Please try logging in.",
	CallbackVerified:                "Email verified successfully! Redirecting to login...",
	CallbackPendingConfirmation:     "Your email is pending verification. Please check your inbox.",
}

var callbackStates = map[flows.CallbackState]CallbackState{
	flows.CallbackProcessing:              CallbackProcessing,
	flows.CallbackAwaitingEmailClick:      CallbackAwaitingEmailClick,
	flows.CallbackVerificationUnconfirmed: CallbackVerificationUnconfirmed,
	flows.CallbackVerified:                CallbackVerified,
	flows.CallbackPendingConfirmation:     CallbackPendingConfirmation,
	flows.CallbackError:                   CallbackError,
}

// HandleCallback processes the URL a verification link landed on.
//
// The returned result always carries a terminal state and its message. The
// error is non-nil only for CallbackError. When the email is confirmed, a
// navigation to Callback.RedirectPath is scheduled after
// Callback.RedirectDelay.
func (e *Engine) HandleCallback(ctx context.Context, rawURL string) (CallbackResult, error) {
	if e == nil {
		return CallbackResult{State: CallbackError, Message: "Failed to verify email: " + ErrEngineNotReady.Error()}, ErrEngineNotReady
	}
	ctx, flowID := ensureFlowID(ctx)

	redirectPath := e.config.Callback.RedirectPath
	deps := flows.CallbackDeps{
		SetSession:    e.identity.SetSession,
		GetSession:    e.identity.GetSession,
		GetUser:       e.identity.GetUser,
		EnsureProfile: e.ensureProfileDeps(),
		ScheduleRedirect: func() {
			e.scheduler.AfterFunc(e.config.Callback.RedirectDelay, func() {
				if e.navigator != nil {
					e.navigator.Navigate(redirectPath)
				}
			})
		},
	}

	var res flows.Result[flows.CallbackOutcome]
	err := guard("callback", func() error {
		var err error
		res, err = flows.RunHandleCallback(ctx, rawURL, deps)
		return err
	})

	out := res.Value
	result := CallbackResult{
		FlowID:            flowID,
		State:             callbackStates[out.State],
		Type:              out.Type,
		User:              out.User,
		ConfirmedAt:       out.ConfirmedAt,
		ProfileCreated:    out.ProfileCreated,
		RedirectScheduled: out.RedirectScheduled,
		Recovered:         res.Recovered,
	}
	if out.RedirectScheduled {
		result.RedirectPath = redirectPath
	}
	if err != nil {
		result.State = CallbackError
	}
	if result.State == CallbackError {
		if err == nil {
			err = errors.New("callback ended without a result")
		}
		result.Message = "Failed to verify email: " + err.Error()
	} else {
		result.Message = callbackMessages[result.State]
	}

	var userID string
	if out.User != nil {
		userID = out.User.ID
	}
	e.tolerated(ctx, userID, res.Recovered)

	switch result.State {
	case CallbackVerified:
		e.metricInc(MetricCallbackVerified)
	case CallbackPendingConfirmation:
		e.metricInc(MetricCallbackPending)
	case CallbackAwaitingEmailClick:
		e.metricInc(MetricCallbackAwaiting)
	case CallbackVerificationUnconfirmed:
		e.metricInc(MetricCallbackUnconfirmed)
	case CallbackError:
		e.metricInc(MetricCallbackError)
	}
	if out.ProfileCreated {
		e.metricInc(MetricProfileCreated)
		e.emitAudit(ctx, auditEventProfileCreated, true, userID, nil, func() map[string]string {
			return map[string]string{"source": "callback"}
		})
	}

	e.log.Info("verification callback handled",
		"flow_id", flowID,
		"user_id", userID,
		"state", string(result.State),
		"type", out.Type,
		"recovered", len(res.Recovered),
	)
	e.emitAudit(ctx, auditEventCallback, result.State != CallbackError, userID, err, func() map[string]string {
		return map[string]string{"state": string(result.State), "type": out.Type}
	})
	return result, err
}
