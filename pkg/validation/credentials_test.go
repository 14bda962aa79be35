package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckSignup_FailureOrder(t *testing.T) {
	c := NewCredentialChecker(DefaultPasswordPolicy())

	// Missing fields win over everything else.
	assert.ErrorIs(t, c.CheckSignup("", "Str0ng!Pass", "other"), ErrMissingFields)
	assert.ErrorIs(t, c.CheckSignup("ada@x.com", "", ""), ErrMissingFields)

	// Mismatch is reported before email syntax is even looked at.
	assert.ErrorIs(t, c.CheckSignup("not-an-email", "Str0ng!Pass", "Other!Pass1"), ErrPasswordMismatch)

	// Email syntax before strength.
	assert.ErrorIs(t, c.CheckSignup("not-an-email", "weak", "weak"), ErrInvalidEmail)

	assert.ErrorIs(t, c.CheckSignup("ada@x.com", "weak", "weak"), ErrWeakPassword)
}

func TestCheckSignup_Valid(t *testing.T) {
	c := NewCredentialChecker(DefaultPasswordPolicy())
	assert.NoError(t, c.CheckSignup("ada@x.com", "Str0ng!Pass", "Str0ng!Pass"))
}

func TestCheckSignup_StrengthClasses(t *testing.T) {
	c := NewCredentialChecker(DefaultPasswordPolicy())

	tests := []struct {
		name     string
		password string
	}{
		{"too short", "S0r!t"},
		{"no lowercase", "STR0NG!PASS"},
		{"no uppercase", "str0ng!pass"},
		{"no digit", "Strong!Pass"},
		{"no symbol", "Str0ngPass1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.CheckSignup("ada@x.com", tt.password, tt.password)
			assert.ErrorIs(t, err, ErrWeakPassword)
		})
	}
}

func TestCheckSignup_RelaxedPolicy(t *testing.T) {
	c := NewCredentialChecker(PasswordPolicy{MinLength: 4})
	assert.NoError(t, c.CheckSignup("ada@x.com", "abcd", "abcd"))
}

func TestCheckLogin(t *testing.T) {
	c := NewCredentialChecker(DefaultPasswordPolicy())

	assert.ErrorIs(t, c.CheckLogin("", "pw"), ErrMissingFields)
	assert.ErrorIs(t, c.CheckLogin("ada@x.com", ""), ErrMissingFields)
	// Login never re-validates syntax or strength.
	assert.NoError(t, c.CheckLogin("not-an-email", "weak"))
}
