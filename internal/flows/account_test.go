package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goAuthClient/identity"
)

func TestRunAuthenticate(t *testing.T) {
	signIn := func(_ context.Context, email, password string) (*identity.Session, error) {
		if password != "secret1" {
			return nil, &identity.Error{Status: 400, Message: "Invalid login credentials"}
		}
		return &identity.Session{AccessToken: "at", User: identity.User{ID: "u1", Email: email}}, nil
	}
	deps := AuthenticateDeps{SignIn: signIn}

	if _, err := RunAuthenticate(context.Background(), "", "x", deps); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}

	_, err := RunAuthenticate(context.Background(), "a@x.com", "nope", deps)
	var cerr *CredentialError
	if !errors.As(err, &cerr) || cerr.Message != "Invalid login credentials" || cerr.Status != 400 {
		t.Fatalf("expected verbatim CredentialError, got %v", err)
	}

	sess, err := RunAuthenticate(context.Background(), " a@x.com ", "secret1", deps)
	if err != nil || sess.User.Email != "a@x.com" {
		t.Fatalf("unexpected %+v %v", sess, err)
	}
}

func TestRunSignUp(t *testing.T) {
	var got identity.SignUpParams
	deps := SignUpDeps{
		EmailRedirectTo: "http://app/verify-email",
		SignUp: func(_ context.Context, p identity.SignUpParams) (*identity.SignUpResult, error) {
			got = p
			if p.Email == "taken@x.com" {
				return nil, &identity.Error{Status: 422, Message: "User already registered"}
			}
			return &identity.SignUpResult{User: &identity.User{ID: "u1", Email: p.Email}}, nil
		},
	}

	if _, err := RunSignUp(context.Background(), SignUpInput{Email: "a@x.com", Password: "p", PhoneNumber: "4155550000"}, deps); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}

	_, err := RunSignUp(context.Background(), SignUpInput{Email: "taken@x.com", Password: "p"}, deps)
	if err == nil || err.Error() != "User already registered" {
		t.Fatalf("expected provider message, got %v", err)
	}

	res, err := RunSignUp(context.Background(), SignUpInput{Email: "a@x.com", Password: "p", FullName: " Ada ", PhoneNumber: "+14155550000"}, deps)
	if err != nil || res.User.ID != "u1" {
		t.Fatalf("sign up: %+v %v", res, err)
	}
	if got.EmailRedirectTo != "http://app/verify-email" || got.Data["full_name"] != "Ada" || got.Data["phone_number"] != "+14155550000" {
		t.Fatalf("unexpected params %+v", got)
	}
}

func TestRunLoadDashboard(t *testing.T) {
	user := &identity.User{ID: "u1", Email: "a@x.com", UserMetadata: map[string]any{"full_name": "Ada"}}
	store := newCountingProfiles()
	deps := DashboardDeps{
		GetUser:       func(context.Context) (*identity.User, error) { return user, nil },
		EnsureProfile: store.ensureDeps(),
	}

	res, err := RunLoadDashboard(context.Background(), deps)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !res.Value.ProfileCreated || res.Value.Profile.FullName != "Ada" {
		t.Fatalf("unexpected %+v", res.Value)
	}

	res, err = RunLoadDashboard(context.Background(), deps)
	if err != nil || res.Value.ProfileCreated || store.inserts != 1 {
		t.Fatalf("second load should reuse the row: %+v %v inserts=%d", res.Value, err, store.inserts)
	}
}

func TestRunLoadDashboardFailures(t *testing.T) {
	noSession := DashboardDeps{GetUser: func(context.Context) (*identity.User, error) { return nil, identity.ErrSessionMissing }}
	if _, err := RunLoadDashboard(context.Background(), noSession); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	store := newCountingProfiles()
	store.writeErr = errors.New("insert denied")
	deps := DashboardDeps{
		GetUser:       func(context.Context) (*identity.User, error) { return &identity.User{ID: "u1"}, nil },
		EnsureProfile: store.ensureDeps(),
	}
	_, err := RunLoadDashboard(context.Background(), deps)
	var perr *ProfileStoreError
	if !errors.As(err, &perr) || perr.Op != "insert" || IsRecoverable(err) {
		t.Fatalf("expected fatal insert ProfileStoreError, got %v", err)
	}
}

func TestValidPhone(t *testing.T) {
	for phone, want := range map[string]bool{
		"+14155550000":     true,
		"+442071838750":    true,
		"14155550000":      false,
		"+0123":            false,
		"+1":               false,
		"+1234567890123456": false,
	} {
		if ValidPhone(phone) != want {
			t.Errorf("ValidPhone(%q) != %v", phone, want)
		}
	}
}
