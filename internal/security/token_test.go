package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

func TestAccessTokenRoundtrip(t *testing.T) {
	token, err := IssueAccessToken(testAccessSecret, "user-1", "Teacher", 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := VerifyAccessToken(token, testAccessSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Teacher", claims.Role)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestRefreshTokenRoundtrip(t *testing.T) {
	token, exp, err := IssueRefreshToken(testRefreshSecret, "user-1", 30*24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := VerifyRefreshToken(token, testRefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token, err := IssueAccessToken(testAccessSecret, "user-1", "Student", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyAccessToken(token, testAccessSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := IssueAccessToken(testAccessSecret, "user-1", "Admin", time.Minute)
	require.NoError(t, err)

	_, err = VerifyAccessToken(token, "some-other-secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSecretsAreIsolatedByFamily(t *testing.T) {
	access, err := IssueAccessToken(testAccessSecret, "user-1", "Admin", time.Minute)
	require.NoError(t, err)

	refresh, _, err := IssueRefreshToken(testRefreshSecret, "user-1", time.Hour)
	require.NoError(t, err)

	_, err = VerifyRefreshToken(access, testRefreshSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid, "access token must not pass refresh verification")

	_, err = VerifyAccessToken(refresh, testAccessSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid, "refresh token must not pass access verification")
}

func TestVerifyRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := VerifyAccessToken(token, testAccessSecret)
		assert.ErrorIs(t, err, ErrTokenInvalid)
		_, err = VerifyRefreshToken(token, testRefreshSecret)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	}
}

func TestDecodeSubjectUnverified(t *testing.T) {
	token, _, err := IssueRefreshToken(testRefreshSecret, "user-42", time.Hour)
	require.NoError(t, err)

	subject, ok := DecodeSubjectUnverified(token)
	require.True(t, ok)
	assert.Equal(t, "user-42", subject)

	// Works without knowing the secret, including on expired tokens.
	expired, _, err := IssueRefreshToken(testRefreshSecret, "user-42", -time.Hour)
	require.NoError(t, err)
	subject, ok = DecodeSubjectUnverified(expired)
	require.True(t, ok)
	assert.Equal(t, "user-42", subject)

	_, ok = DecodeSubjectUnverified("garbage")
	assert.False(t, ok)
}
