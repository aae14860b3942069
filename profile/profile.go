// Package profile stores the application-side profile record kept alongside
// each provider identity.
//
// A profile is keyed by the identity id, so there is at most one per identity.
// [Store.Get] treats "no row" as a normal outcome (nil, nil); only transport or
// query failures are errors.
package profile

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicate is returned by Insert when a profile with the id already exists.
	ErrDuplicate = errors.New("profile already exists")
	// ErrInvalidID is returned for an empty or malformed profile id.
	ErrInvalidID = errors.New("invalid profile id")
)

// Profile is one row of the profiles table.
type Profile struct {
	ID          string    `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Email       string    `gorm:"column:email" json:"email"`
	FullName    string    `gorm:"column:full_name" json:"full_name"`
	PhoneNumber string    `gorm:"column:phone_number" json:"phone_number"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	IsDeleted   bool      `gorm:"column:isDeleted;not null;default:false" json:"isDeleted"`
}

// Field names a mutable profile column for Upsert.
type Field string

const (
	FieldEmail       Field = "email"
	FieldFullName    Field = "full_name"
	FieldPhoneNumber Field = "phone_number"
	FieldIsDeleted   Field = "isDeleted"
)

// AllFields lists every column Upsert may overwrite.
var AllFields = []Field{FieldEmail, FieldFullName, FieldPhoneNumber, FieldIsDeleted}

// Store is the profile persistence contract.
type Store interface {
	// Get returns the profile for id, or (nil, nil) when there is none.
	Get(ctx context.Context, id string) (*Profile, error)
	// Insert creates p and fails with ErrDuplicate if the id is taken.
	Insert(ctx context.Context, p Profile) error
	// Upsert inserts p, or on id conflict overwrites the given fields
	// (all mutable fields when none are given).
	Upsert(ctx context.Context, p Profile, fields ...Field) error
}

func fieldsOrAll(fields []Field) []Field {
	if len(fields) == 0 {
		return AllFields
	}
	return fields
}

func (p *Profile) assign(src Profile, fields []Field) {
	for _, f := range fields {
		switch f {
		case FieldEmail:
			p.Email = src.Email
		case FieldFullName:
			p.FullName = src.FullName
		case FieldPhoneNumber:
			p.PhoneNumber = src.PhoneNumber
		case FieldIsDeleted:
			p.IsDeleted = src.IsDeleted
		}
	}
}
