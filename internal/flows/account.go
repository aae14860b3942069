package flows

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/MrEthical07/goAuthClient/identity"
	"github.com/MrEthical07/goAuthClient/profile"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidPhone reports whether p is an E.164 number.
func ValidPhone(p string) bool {
	return e164Pattern.MatchString(p)
}

// SignUpInput is a registration request.
type SignUpInput struct {
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
}

// SignUpDeps captures registration dependencies.
type SignUpDeps struct {
	SignUp          func(ctx context.Context, p identity.SignUpParams) (*identity.SignUpResult, error)
	EmailRedirectTo string
}

// RunSignUp registers a new identity with full name and phone stored as user
// metadata. The confirmation link points at EmailRedirectTo.
func RunSignUp(ctx context.Context, in SignUpInput, deps SignUpDeps) (*identity.SignUpResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if in.Email == "" || in.Password == "" {
		return nil, Fatal("signup", ErrMissingCredentials)
	}
	if in.PhoneNumber != "" && !ValidPhone(in.PhoneNumber) {
		return nil, Fatal("signup", ErrInvalidPhone)
	}

	out, err := deps.SignUp(ctx, identity.SignUpParams{
		Email:    in.Email,
		Password: in.Password,
		Data: map[string]any{
			"full_name":    in.FullName,
			"phone_number": in.PhoneNumber,
		},
		EmailRedirectTo: deps.EmailRedirectTo,
	})
	if err != nil {
		return nil, Fatal("signup", newCredentialError(err))
	}
	return out, nil
}

// DashboardDeps captures dashboard loading dependencies.
type DashboardDeps struct {
	GetUser       func(ctx context.Context) (*identity.User, error)
	EnsureProfile EnsureProfileDeps
}

// DashboardOutcome is the signed-in user's identity and profile.
type DashboardOutcome struct {
	User           *identity.User
	Profile        *profile.Profile
	ProfileCreated bool
}

// RunLoadDashboard reads the current user and guarantees a profile row for it.
// Profile store failures are fatal here.
func RunLoadDashboard(ctx context.Context, deps DashboardDeps) (Result[DashboardOutcome], error) {
	var res Result[DashboardOutcome]

	user, err := deps.GetUser(ctx)
	if errors.Is(err, identity.ErrSessionMissing) || (err == nil && user == nil) {
		return res, Fatal("get_user", ErrNoSession)
	}
	if err != nil {
		return res, Fatal("get_user", err)
	}
	res.Value.User = user

	ensured, err := RunEnsureProfile(ctx, user, false, deps.EnsureProfile)
	res.Recovered = append(res.Recovered, ensured.Recovered...)
	if err != nil {
		return res, err
	}
	res.Value.Profile = ensured.Value.Profile
	res.Value.ProfileCreated = ensured.Value.Created
	return res, nil
}
