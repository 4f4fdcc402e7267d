package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/civicgov/grievance-service/internal/auth"
	"github.com/civicgov/grievance-service/internal/config"
	"github.com/civicgov/grievance-service/internal/domain"
	"github.com/civicgov/grievance-service/internal/repository"
	apperrors "github.com/civicgov/grievance-service/pkg/errorutil"
)

// AuthService coordinates admin login and credential management.
type AuthService struct {
	admins     repository.AdminRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, admins repository.AdminRepository) *AuthService {
	return &AuthService{
		admins:     admins,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// LoginAdmin authenticates an operator and returns a signed token.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*domain.AdminUser, string, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", apperrors.MapError(err)
	}
	if !admin.Active {
		return nil, "", apperrors.NewUnauthorized("account deactivated")
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, "", apperrors.NewUnauthorized("invalid credentials")
	}
	token, _, err := s.tokenMgr.GenerateToken(admin)
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}
	return admin, token, nil
}

// ChangePassword verifies the current password before updating the hash.
func (s *AuthService) ChangePassword(ctx context.Context, adminID, currentPassword, newPassword string) error {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(admin.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	admin.PasswordHash = hash
	if err := s.admins.Update(ctx, admin); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
