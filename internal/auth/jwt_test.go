package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/whatsorder/whatsorder-server/internal/config"
	"github.com/whatsorder/whatsorder-server/internal/models"
)

func newManager(accessTTL time.Duration) *JWTManager {
	return NewJWTManager(&config.JWTConfig{
		Secret:          "unit-test-secret",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: time.Hour,
	})
}

func TestTokenPairRoundTrip(t *testing.T) {
	m := newManager(15 * time.Minute)

	tenantID := uuid.New()
	user := &models.User{
		ID:       uuid.New(),
		Email:    "owner@example.com",
		IsAdmin:  false,
		TenantID: &tenantID,
	}

	access, refresh, err := m.GenerateTokenPair(user)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "owner@example.com", claims.Email)
	require.NotNil(t, claims.TenantID)
	require.Equal(t, tenantID, *claims.TenantID)

	userID, err := m.ParseRefreshToken(refresh)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	m := newManager(15 * time.Minute)
	user := &models.User{ID: uuid.New(), Email: "a@b.c"}

	access, _, err := m.GenerateTokenPair(user)
	require.NoError(t, err)

	other := NewJWTManager(&config.JWTConfig{Secret: "different-secret"})
	_, err = other.ValidateToken(access)
	require.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := newManager(-time.Minute)
	user := &models.User{ID: uuid.New(), Email: "a@b.c"}

	access, _, err := m.GenerateTokenPair(user)
	require.NoError(t, err)

	_, err = m.ValidateToken(access)
	require.Error(t, err)
}

func TestParseRefreshTokenRejectsGarbage(t *testing.T) {
	m := newManager(15 * time.Minute)

	_, err := m.ParseRefreshToken("not.a.token")
	require.Error(t, err)
}
