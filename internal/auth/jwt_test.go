package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("secret", "onboarding", time.Hour)

	signed, exp, err := tokens.Issue("user-1", "ada@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestTokens_RejectsWrongSecret(t *testing.T) {
	signed, _, err := NewTokens("secret", "onboarding", time.Hour).Issue("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = NewTokens("other", "onboarding", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsWrongIssuer(t *testing.T) {
	signed, _, err := NewTokens("secret", "someone-else", time.Hour).Issue("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = NewTokens("secret", "onboarding", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsExpired(t *testing.T) {
	tokens := NewTokens("secret", "onboarding", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
	signed, _, err := tokens.Issue("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = NewTokens("secret", "onboarding", time.Minute).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsGarbage(t *testing.T) {
	_, err := NewTokens("secret", "onboarding", time.Hour).Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "correct horse battery"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "anything"))
}
