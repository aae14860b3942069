package goAuthClient

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/flows"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventSecondFactorRequired  = "second_factor_required"
	auditEventCodeSent              = "verification_code_sent"
	auditEventCodeSendFailure       = "verification_code_send_failure"
	auditEventCodeVerified          = "verification_code_verified"
	auditEventCodeRejected          = "verification_code_rejected"
	auditEventSessionLost           = "session_lost"
	auditEventProfileBackfill       = "profile_backfill"
	auditEventProfileCreated        = "profile_created"
	auditEventCallback              = "verification_callback"
	auditEventSignUpSuccess         = "signup_success"
	auditEventSignUpFailure         = "signup_failure"
	auditEventSignOut               = "signout"
	auditEventDashboardLoad         = "dashboard_load"
	auditEventRecoverableStepFailed = "recoverable_step_failed"
)

// AuditErrorCode is the coarse error class recorded in audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrMissingInput       AuditErrorCode = "missing_input"
	auditErrNoSession          AuditErrorCode = "no_session"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrChannel            AuditErrorCode = "channel_error"
	auditErrCodeRejected       AuditErrorCode = "code_rejected"
	auditErrProfileStore       AuditErrorCode = "profile_store_error"
	auditErrCallbackParse      AuditErrorCode = "callback_parse_error"
	auditErrInvalidTransition  AuditErrorCode = "invalid_transition"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		FlowID:    flowIDFromContext(ctx),
		UserID:    userID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// tolerated logs and audits every failure a flow recovered from.
func (e *Engine) tolerated(ctx context.Context, userID string, recovered []error) {
	for _, err := range recovered {
		op := flows.OpOf(err)
		e.log.Warn("recoverable step failed",
			"op", op,
			"flow_id", flowIDFromContext(ctx),
			"user_id", userID,
			"error", err,
		)
		switch op {
		case "profile_backfill":
			e.metricInc(MetricProfileBackfillFailure)
		case "profile_create":
			e.metricInc(MetricProfileCreateFailure)
		}
		e.emitAudit(ctx, auditEventRecoverableStepFailed, false, userID, err, func() map[string]string {
			return map[string]string{"op": op}
		})
	}
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var (
		credErr     *CredentialError
		channelErr  *ChannelError
		profileErr  *ProfileStoreError
		callbackErr *CallbackParseError
	)
	switch {
	case errors.Is(err, ErrNoSession),
		errors.Is(err, ErrSessionMissing):
		return auditErrNoSession
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrMissingPhone),
		errors.Is(err, ErrMissingCode),
		errors.Is(err, ErrInvalidPhone):
		return auditErrMissingInput
	case errors.Is(err, ErrCodeSendRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrCodeSendUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrInvalidTransition):
		return auditErrInvalidTransition
	case errors.As(err, &credErr):
		return auditErrInvalidCredentials
	case errors.As(err, &channelErr):
		if channelErr.Op == "verify" && channelErr.Status >= 400 && channelErr.Status < 500 {
			return auditErrCodeRejected
		}
		return auditErrChannel
	case errors.As(err, &profileErr):
		return auditErrProfileStore
	case errors.As(err, &callbackErr):
		return auditErrCallbackParse
	default:
		return auditErrInternal
	}
}
