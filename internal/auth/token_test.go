package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgov/grievance-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)
	water := domain.DepartmentWaterSupply
	admin := &domain.AdminUser{
		ID:         "7c8f1f1e-9a6c-4b39-8f2a-1a2b3c4d5e6f",
		Role:       domain.AdminRoleOfficer,
		Department: &water,
	}

	token, exp, err := tm.GenerateToken(admin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AdminID)
	assert.Equal(t, domain.AdminRoleOfficer, claims.Role)
	require.NotNil(t, claims.Department)
	assert.Equal(t, domain.DepartmentWaterSupply, *claims.Department)
}

func TestParseTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", 30)
	other := NewTokenManager("secret-b", 30)

	token, _, err := tm.GenerateToken(&domain.AdminUser{ID: "x", Role: domain.AdminRoleAdmin})
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	_, err := tm.ParseToken("not.a.jwt")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-passphrase", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret-passphrase"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}
