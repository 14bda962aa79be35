package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, exp, err := issuer.Issue("acc-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("secret", -time.Minute)

	token, _, err := issuer.Issue("acc-1")
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	other := NewTokenIssuer("different", time.Hour)

	token, _, err := issuer.Issue("acc-1")
	require.NoError(t, err)

	_, err = other.Parse(token)
	assert.Error(t, err)
}
