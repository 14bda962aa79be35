package entity

import (
	"time"
)

// Account is the aggregate root for the account domain.
// Password holds the bcrypt digest, never the plaintext.
type Account struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Password  string
	AvatarURL string
	Birthday  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
