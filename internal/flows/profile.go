package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthClient/identity"
	"github.com/MrEthical07/goAuthClient/profile"
)

// EnsureProfileDeps captures profile access for the existence guarantee.
type EnsureProfileDeps struct {
	GetProfile    func(ctx context.Context, id string) (*profile.Profile, error)
	InsertProfile func(ctx context.Context, p profile.Profile) error
}

// EnsureProfileOutcome is the profile after the guarantee ran.
type EnsureProfileOutcome struct {
	Profile *profile.Profile
	Created bool
}

// SeedProfile builds the initial profile row for u from its email and
// metadata.
func SeedProfile(u *identity.User) profile.Profile {
	return profile.Profile{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.MetadataString("full_name"),
		PhoneNumber: u.MetadataString("phone_number"),
		IsDeleted:   false,
	}
}

// RunEnsureProfile makes sure u has a profile row, inserting a seeded one when
// the lookup finds none. In bestEffort mode store failures are tolerated and
// reported in Recovered; otherwise they are fatal.
func RunEnsureProfile(ctx context.Context, u *identity.User, bestEffort bool, deps EnsureProfileDeps) (Result[EnsureProfileOutcome], error) {
	var res Result[EnsureProfileOutcome]
	if u == nil || u.ID == "" {
		return res, Fatal("ensure_profile", ErrNoSession)
	}

	existing, err := deps.GetProfile(ctx, u.ID)
	if err != nil {
		perr := &ProfileStoreError{Op: "get", Err: err}
		if !bestEffort {
			return res, Fatal("ensure_profile", perr)
		}
		res.tolerate("profile_lookup", perr)
	}
	if existing != nil {
		res.Value.Profile = existing
		return res, nil
	}

	seed := SeedProfile(u)
	if err := deps.InsertProfile(ctx, seed); err != nil {
		// Another flow created the row between our read and insert.
		if errors.Is(err, profile.ErrDuplicate) {
			if p, gerr := deps.GetProfile(ctx, u.ID); gerr == nil && p != nil {
				res.Value.Profile = p
				return res, nil
			}
		}
		perr := &ProfileStoreError{Op: "insert", Err: err}
		if !bestEffort {
			return res, Fatal("ensure_profile", perr)
		}
		res.tolerate("profile_create", perr)
		return res, nil
	}

	res.Value.Profile = &seed
	res.Value.Created = true
	return res, nil
}
