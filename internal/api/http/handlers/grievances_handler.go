package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicgov/grievance-service/internal/api/dto"
	"github.com/civicgov/grievance-service/internal/domain"
	"github.com/civicgov/grievance-service/internal/observability"
	"github.com/civicgov/grievance-service/internal/ratelimit"
	"github.com/civicgov/grievance-service/internal/service"
	apperrors "github.com/civicgov/grievance-service/pkg/errorutil"
)

// GrievancesHandler manages the citizen-facing endpoints.
type GrievancesHandler struct {
	service *service.GrievanceService
	limiter *ratelimit.Limiter
	metrics *observability.Metrics
}

// NewGrievancesHandler constructs the handler.
func NewGrievancesHandler(grievanceService *service.GrievanceService, limiter *ratelimit.Limiter, metrics *observability.Metrics) *GrievancesHandler {
	return &GrievancesHandler{service: grievanceService, limiter: limiter, metrics: metrics}
}

// Submit POST /api/v1/grievances.
func (h *GrievancesHandler) Submit(c *fiber.Ctx) error {
	if h.limiter != nil && !h.limiter.Allow(c.UserContext(), c.IP()) {
		if h.metrics != nil {
			h.metrics.RateLimitRejections.Inc()
		}
		return apperrors.NewTooManyRequests("too many submissions; try again later")
	}

	var req dto.SubmitGrievanceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Description == "" {
		return apperrors.NewValidationError("description required", nil)
	}

	grievance, err := h.service.Submit(c.UserContext(), service.SubmitInput{
		Description:  req.Description,
		CitizenName:  req.CitizenName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		LocationWard: req.LocationWard,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SubmitGrievanceResponse{
		TrackingToken: grievance.TrackingToken,
		Department:    grievance.Department,
		Priority:      grievance.Priority,
		Status:        grievance.Status,
		CreatedAt:     grievance.CreatedAt,
	}})
}

// Track GET /api/v1/grievances/track/:token.
func (h *GrievancesHandler) Track(c *fiber.Ctx) error {
	grievance, err := h.service.Track(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TrackGrievanceResponse{
		TrackingToken:  grievance.TrackingToken,
		Description:    grievance.Description,
		LocationWard:   grievance.LocationWard,
		Department:     grievance.Department.DisplayName(),
		Priority:       grievance.Priority,
		Status:         grievance.Status,
		ResolutionNote: grievance.ResolutionNote,
		CreatedAt:      grievance.CreatedAt,
		UpdatedAt:      grievance.UpdatedAt,
		ResolvedAt:     grievance.ResolvedAt,
	}})
}

// ListDepartments GET /api/v1/departments.
func (h *GrievancesHandler) ListDepartments(c *fiber.Ctx) error {
	items := make([]dto.DepartmentResponse, 0, len(domain.AllDepartments))
	for _, dept := range domain.AllDepartments {
		items = append(items, dto.DepartmentResponse{Code: dept, Name: dept.DisplayName()})
	}
	return c.JSON(fiber.Map{"data": items})
}
