package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/goAuthClient/identity"
	"github.com/MrEthical07/goAuthClient/profile"
)

// PhoneSource says where the second-factor phone number came from.
type PhoneSource uint8

const (
	PhoneSourceNone PhoneSource = iota
	PhoneSourceProfile
	PhoneSourceMetadata
)

func (s PhoneSource) String() string {
	switch s {
	case PhoneSourceProfile:
		return "profile"
	case PhoneSourceMetadata:
		return "metadata"
	default:
		return "none"
	}
}

// SecondFactorDecision is the resolver's verdict for one login.
type SecondFactorDecision struct {
	Required bool
	Phone    string
	Source   PhoneSource
	// Profile is the record read during resolution, nil if absent or unreadable.
	Profile *profile.Profile
	// Backfilled is set when a metadata phone was written to the profile.
	Backfilled bool
}

type phoneAccessor struct {
	source PhoneSource
	read   func(p *profile.Profile, u *identity.User) string
}

// phoneAccessors are consulted in order; the first non-empty value wins.
var phoneAccessors = []phoneAccessor{
	{
		source: PhoneSourceProfile,
		read: func(p *profile.Profile, _ *identity.User) string {
			if p == nil {
				return ""
			}
			return strings.TrimSpace(p.PhoneNumber)
		},
	},
	{
		source: PhoneSourceMetadata,
		read: func(_ *profile.Profile, u *identity.User) string {
			return u.MetadataString("phone_number")
		},
	},
}

// DecideSecondFactor picks the phone for the second factor from already
// fetched records.
func DecideSecondFactor(p *profile.Profile, u *identity.User) SecondFactorDecision {
	for _, acc := range phoneAccessors {
		if phone := acc.read(p, u); phone != "" {
			return SecondFactorDecision{Required: true, Phone: phone, Source: acc.source, Profile: p}
		}
	}
	return SecondFactorDecision{Source: PhoneSourceNone, Profile: p}
}

// SecondFactorDeps captures profile access for the resolver.
type SecondFactorDeps struct {
	GetProfile    func(ctx context.Context, id string) (*profile.Profile, error)
	UpsertProfile func(ctx context.Context, p profile.Profile, fields ...profile.Field) error
}

// RunResolveSecondFactor decides whether user must pass a second factor.
// An unreadable profile counts as "no profile phone". A phone found only in
// metadata is copied to the profile; failing to do so does not change the
// decision.
func RunResolveSecondFactor(ctx context.Context, user *identity.User, deps SecondFactorDeps) (Result[SecondFactorDecision], error) {
	var res Result[SecondFactorDecision]
	if user == nil || user.ID == "" {
		return res, Fatal("resolve_second_factor", ErrNoSession)
	}

	p, err := deps.GetProfile(ctx, user.ID)
	if err != nil {
		res.tolerate("profile_lookup", &ProfileStoreError{Op: "get", Err: err})
		p = nil
	}

	res.Value = DecideSecondFactor(p, user)
	if res.Value.Source != PhoneSourceMetadata {
		return res, nil
	}

	backfill := profile.Profile{ID: user.ID, Email: user.Email, PhoneNumber: res.Value.Phone}
	if err := deps.UpsertProfile(ctx, backfill, profile.FieldPhoneNumber, profile.FieldEmail); err != nil {
		res.tolerate("profile_backfill", &ProfileStoreError{Op: "upsert", Err: err})
		return res, nil
	}
	res.Value.Backfilled = true
	return res, nil
}
