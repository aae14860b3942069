package flows

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/identity"
)

// CallbackState is the terminal state of one callback run.
type CallbackState uint8

const (
	CallbackProcessing CallbackState = iota
	CallbackAwaitingEmailClick
	CallbackVerificationUnconfirmed
	CallbackVerified
	CallbackPendingConfirmation
	CallbackError
)

func (s CallbackState) String() string {
	switch s {
	case CallbackAwaitingEmailClick:
		return "awaiting_email_click"
	case CallbackVerificationUnconfirmed:
		return "verification_unconfirmed"
	case CallbackVerified:
		return "verified"
	case CallbackPendingConfirmation:
		return "pending_confirmation"
	case CallbackError:
		return "error"
	default:
		return "processing"
	}
}

// CallbackFragment is the token payload carried in a callback URL fragment.
type CallbackFragment struct {
	Type         string
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	ExpiresAt    int64
}

// ParseCallbackURL extracts the fragment parameters of raw. A URL without a
// fragment yields an empty CallbackFragment. On a malformed fragment the
// pairs that did decode are still returned with a *CallbackParseError.
func ParseCallbackURL(raw string) (CallbackFragment, error) {
	var frag CallbackFragment
	_, fragment, found := strings.Cut(raw, "#")
	if !found || fragment == "" {
		return frag, nil
	}

	values, err := url.ParseQuery(fragment)
	frag.Type = values.Get("type")
	frag.AccessToken = values.Get("access_token")
	frag.RefreshToken = values.Get("refresh_token")
	frag.TokenType = values.Get("token_type")
	frag.ExpiresIn, _ = strconv.ParseInt(values.Get("expires_in"), 10, 64)
	frag.ExpiresAt, _ = strconv.ParseInt(values.Get("expires_at"), 10, 64)
	if err != nil {
		return frag, &CallbackParseError{Fragment: fragment, Err: err}
	}
	return frag, nil
}

// confirmationAccessors are the user fields that mark an email as confirmed,
// in the order they are consulted.
var confirmationAccessors = []func(u *identity.User) *time.Time{
	func(u *identity.User) *time.Time { return u.EmailConfirmedAt },
	func(u *identity.User) *time.Time { return u.ConfirmedAt },
}

// ConfirmedAt returns the first set confirmation timestamp of u.
func ConfirmedAt(u *identity.User) (time.Time, bool) {
	if u == nil {
		return time.Time{}, false
	}
	for _, acc := range confirmationAccessors {
		if at := acc(u); at != nil && !at.IsZero() {
			return *at, true
		}
	}
	return time.Time{}, false
}

// CallbackDeps captures callback handling dependencies.
type CallbackDeps struct {
	SetSession    func(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error)
	GetSession    func(ctx context.Context) (*identity.Session, error)
	GetUser       func(ctx context.Context) (*identity.User, error)
	EnsureProfile EnsureProfileDeps
	// ScheduleRedirect is called once when the email is confirmed.
	ScheduleRedirect func()
}

// CallbackOutcome describes how a callback run ended.
type CallbackOutcome struct {
	State       CallbackState
	Type        string
	User        *identity.User
	ConfirmedAt time.Time
	// ProfileCreated is set when this run inserted the profile row.
	ProfileCreated    bool
	RedirectScheduled bool
}

// RunHandleCallback processes a verification link landing URL.
//
// The only fatal error is a failing session read, which ends in
// CallbackError. Parse, set-session, user-read and profile failures are
// tolerated and reported in Recovered.
func RunHandleCallback(ctx context.Context, rawURL string, deps CallbackDeps) (Result[CallbackOutcome], error) {
	var res Result[CallbackOutcome]
	res.Value.State = CallbackProcessing

	frag, err := ParseCallbackURL(rawURL)
	if err != nil {
		res.tolerate("parse_callback", err)
	}
	res.Value.Type = frag.Type

	if frag.AccessToken == "" {
		res.Value.State = CallbackAwaitingEmailClick
		return res, nil
	}

	if _, err := deps.SetSession(ctx, frag.AccessToken, frag.RefreshToken); err != nil {
		res.tolerate("set_session", err)
	}

	sess, err := deps.GetSession(ctx)
	if err != nil {
		res.Value.State = CallbackError
		return res, Fatal("get_session", err)
	}
	if sess == nil {
		res.Value.State = CallbackVerificationUnconfirmed
		return res, nil
	}

	user, err := deps.GetUser(ctx)
	if err != nil {
		res.tolerate("get_user", err)
		user = nil
	}
	res.Value.User = user

	if at, ok := ConfirmedAt(user); ok {
		res.Value.State = CallbackVerified
		res.Value.ConfirmedAt = at
		if deps.ScheduleRedirect != nil {
			deps.ScheduleRedirect()
			res.Value.RedirectScheduled = true
		}
		return res, nil
	}

	res.Value.State = CallbackPendingConfirmation
	if user == nil {
		return res, nil
	}

	ensured, err := RunEnsureProfile(ctx, user, true, deps.EnsureProfile)
	res.Recovered = append(res.Recovered, ensured.Recovered...)
	if err != nil {
		res.tolerate("ensure_profile", err)
		return res, nil
	}
	res.Value.ProfileCreated = ensured.Value.Created
	return res, nil
}
