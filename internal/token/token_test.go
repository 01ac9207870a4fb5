package token

import (
	"testing"
	"time"

	"taskflow/internal/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(Config{
		AccessSecret:  []byte("access"),
		AccessTTL:     time.Hour,
		RefreshSecret: []byte("refresh"),
		RefreshTTL:    30 * 24 * time.Hour,
	})
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	svc := newTestService()
	user := &models.User{ID: "user-1", Role: models.RoleMember}

	tok, err := svc.IssueAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleMember, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	svc := newTestService()
	user := &models.User{ID: "user-1"}

	access, err := svc.IssueAccessToken(user)
	require.NoError(t, err)
	refresh, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	svc := newTestService()
	user := &models.User{ID: "user-1"}

	a, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)
	b, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newTestService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := svc.IssueAccessToken(&models.User{ID: "user-1"})
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	svc := newTestService()
	other := NewService(Config{AccessSecret: []byte("other"), AccessTTL: time.Hour})

	tok, err := other.IssueAccessToken(&models.User{ID: "user-1"})
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifyAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	svc := newTestService()
	claims := Claims{UserID: "user-1", Type: TypeAccess, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
