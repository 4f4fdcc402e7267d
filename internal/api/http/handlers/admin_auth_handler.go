package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicgov/grievance-service/internal/api/dto"
	"github.com/civicgov/grievance-service/internal/auth"
	"github.com/civicgov/grievance-service/internal/service"
	apperrors "github.com/civicgov/grievance-service/pkg/errorutil"
)

const minPasswordLen = 8

// AdminAuthHandler manages operator authentication endpoints.
type AdminAuthHandler struct {
	service *service.AuthService
}

// NewAdminAuthHandler constructs the handler.
func NewAdminAuthHandler(authService *service.AuthService) *AdminAuthHandler {
	return &AdminAuthHandler{service: authService}
}

// Login POST /auth/admin/login.
func (h *AdminAuthHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	admin, token, err := h.service.LoginAdmin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"access_token": token,
		"role":         admin.Role,
		"department":   admin.Department,
	}})
}

// ChangePassword POST /auth/password/change.
func (h *AdminAuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.NewPassword) < minPasswordLen {
		return apperrors.NewValidationError("new password too short", map[string]any{
			"min_length": minPasswordLen,
		})
	}

	if err := h.service.ChangePassword(c.UserContext(), principal.Admin.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "password updated"}})
}
