package repository

import (
	"context"
	"errors"

	"accounthub/internal/domain/entity"
)

var (
	// ErrNotFound is returned by lookups, updates, and deletes for unknown ids.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned when a create would violate email uniqueness.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrInvalidPatch is returned by UpdateFields for an empty patch or one
	// naming a field that cannot be updated.
	ErrInvalidPatch = errors.New("invalid profile patch")
)

// AccountRepository defines the interface for account persistence.
type AccountRepository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	// UpdateFields applies a partial patch of whitelisted fields to an account.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	UpdatePassword(ctx context.Context, id string, hash string) error
	// Delete removes the account and returns the deleted record.
	Delete(ctx context.Context, id string) (*entity.Account, error)
}
