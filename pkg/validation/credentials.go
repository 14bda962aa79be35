package validation

import (
	"errors"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Credential check failures, in the order the checks run.
var (
	ErrMissingFields    = errors.New("all fields must be filled")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidEmail     = errors.New("email is not valid")
	ErrWeakPassword     = errors.New("password is not strong enough")
)

var validate = validator.New()

// PasswordPolicy controls the strength check applied at signup.
type PasswordPolicy struct {
	MinLength     int
	RequireLower  bool
	RequireUpper  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPasswordPolicy requires at least 8 characters and one character
// from each of the lowercase, uppercase, digit, and symbol classes.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     8,
		RequireLower:  true,
		RequireUpper:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// CredentialChecker performs syntactic and strength checks on credentials.
// Checks short-circuit on the first failure and have no side effects.
type CredentialChecker struct {
	Policy PasswordPolicy
}

func NewCredentialChecker(policy PasswordPolicy) *CredentialChecker {
	return &CredentialChecker{Policy: policy}
}

// CheckSignup validates credentials for registration, in order:
// both fields present, passwords match, email grammar, password strength.
func (c *CredentialChecker) CheckSignup(email, password, confirm string) error {
	if email == "" || password == "" {
		return ErrMissingFields
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if err := validate.Var(email, "email"); err != nil {
		return ErrInvalidEmail
	}
	if !c.strongEnough(password) {
		return ErrWeakPassword
	}
	return nil
}

// CheckLogin only requires both fields to be present.
func (c *CredentialChecker) CheckLogin(email, password string) error {
	if email == "" || password == "" {
		return ErrMissingFields
	}
	return nil
}

func (c *CredentialChecker) strongEnough(password string) bool {
	if len(password) < c.Policy.MinLength {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if c.Policy.RequireLower && !lower {
		return false
	}
	if c.Policy.RequireUpper && !upper {
		return false
	}
	if c.Policy.RequireDigit && !digit {
		return false
	}
	if c.Policy.RequireSymbol && !symbol {
		return false
	}
	return true
}
