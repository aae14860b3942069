package goAuthClient

import (
	"context"
	"time"

	"github.com/MrEthical07/goAuthClient/identity"
	"github.com/MrEthical07/goAuthClient/profile"
	"github.com/MrEthical07/goAuthClient/verification"
)

type (
	User    = identity.User
	Session = identity.Session
	Profile = profile.Profile
)

// LoginState is a state of the [LoginFlow] machine.
type LoginState uint8

const (
	LoginIdle LoginState = iota
	LoginAuthenticating
	LoginAwaitingSecondFactor
	LoginSendingCode
	LoginCodeSent
	LoginVerifying
	LoginVerifyFailed
	LoginAuthenticated
)

func (s LoginState) String() string {
	switch s {
	case LoginIdle:
		return "idle"
	case LoginAuthenticating:
		return "authenticating"
	case LoginAwaitingSecondFactor:
		return "awaiting_second_factor"
	case LoginSendingCode:
		return "sending_code"
	case LoginCodeSent:
		return "code_sent"
	case LoginVerifying:
		return "verifying"
	case LoginVerifyFailed:
		return "verify_failed"
	case LoginAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// inFlight reports whether a call is currently being processed.
func (s LoginState) inFlight() bool {
	return s == LoginAuthenticating || s == LoginSendingCode || s == LoginVerifying
}

// ChallengeState tracks the one-time code exchange of a login attempt.
type ChallengeState uint8

const (
	ChallengeNotStarted ChallengeState = iota
	ChallengeCodeSent
	ChallengeCodeSubmitted
	ChallengeVerified
	ChallengeFailed
)

func (s ChallengeState) String() string {
	switch s {
	case ChallengeCodeSent:
		return "code_sent"
	case ChallengeCodeSubmitted:
		return "code_submitted"
	case ChallengeVerified:
		return "verified"
	case ChallengeFailed:
		return "failed"
	default:
		return "not_started"
	}
}

// SecondFactor is the second-factor context of one login attempt. It lives
// only between credential success and authentication.
type SecondFactor struct {
	Required  bool
	Phone     string
	Source    string
	Challenge ChallengeState
	Sends     int
}

// LoginView is a read-only snapshot of a [LoginFlow] for presentation.
type LoginView struct {
	FlowID  string
	State   LoginState
	Error   string
	Message string
	// Phone is set while a second factor is pending.
	Phone        string
	SecondFactor *SecondFactor
	User         *User
	Profile      *Profile
}

// CallbackState is the terminal state of a verification callback run.
type CallbackState string

const (
	CallbackProcessing              CallbackState = "processing"
	CallbackAwaitingEmailClick      CallbackState = "awaiting_email_click"
	CallbackVerificationUnconfirmed CallbackState = "verification_unconfirmed"
	CallbackVerified                CallbackState = "verified"
	CallbackPendingConfirmation     CallbackState = "pending_confirmation"
	CallbackError                   CallbackState = "error"
)

// CallbackResult is the outcome of [Engine.HandleCallback].
type CallbackResult struct {
	FlowID            string
	State             CallbackState
	Message           string
	Type              string
	User              *User
	ConfirmedAt       time.Time
	ProfileCreated    bool
	RedirectScheduled bool
	RedirectPath      string
	// Recovered lists failures that were logged and tolerated.
	Recovered []error
}

// DashboardView is the signed-in user's identity and profile.
type DashboardView struct {
	User           *User
	Profile        *Profile
	ProfileCreated bool
	LastSignInAt   *time.Time
	CreatedAt      time.Time
}

// SignUpRequest is a registration request.
type SignUpRequest struct {
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
}

// SignUpResult is the outcome of [Engine.SignUp].
type SignUpResult struct {
	User    *User
	Session *Session
	Message string
}

// IdentityProvider is the hosted identity provider. [identity.Client]
// implements it.
type IdentityProvider interface {
	SignUp(ctx context.Context, p identity.SignUpParams) (*identity.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	GetSession(ctx context.Context) (*Session, error)
	SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	GetUser(ctx context.Context) (*User, error)
	SignOut(ctx context.Context) error
}

// SessionStore persists the current session for the built-in identity client.
type SessionStore = identity.Storage

// ProfileStore is the application profile table.
type ProfileStore = profile.Store

// CodeChannel is the out-of-band verification code service.
// [verification.Channel] implements it.
type CodeChannel interface {
	SendCode(ctx context.Context, phone string) (*verification.Response, error)
	VerifyCode(ctx context.Context, phone, code string) (*verification.Response, error)
}

// Navigator moves the presentation layer to path.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Scheduler runs f once after d. There is no cancellation.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// SchedulerFunc adapts a function to [Scheduler].
type SchedulerFunc func(d time.Duration, f func())

func (f SchedulerFunc) AfterFunc(d time.Duration, fn func()) { f(d, fn) }

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
