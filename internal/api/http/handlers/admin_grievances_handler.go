package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/civicgov/grievance-service/internal/api/dto"
	"github.com/civicgov/grievance-service/internal/auth"
	"github.com/civicgov/grievance-service/internal/domain"
	"github.com/civicgov/grievance-service/internal/service"
	apperrors "github.com/civicgov/grievance-service/pkg/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AdminGrievancesHandler exposes the operator workflows.
type AdminGrievancesHandler struct {
	service *service.GrievanceService
}

// NewAdminGrievancesHandler constructs the handler.
func NewAdminGrievancesHandler(grievanceService *service.GrievanceService) *AdminGrievancesHandler {
	return &AdminGrievancesHandler{service: grievanceService}
}

// List GET /api/v1/admin/grievances.
func (h *AdminGrievancesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter, err := parseGrievanceQuery(c)
	if err != nil {
		return err
	}

	grievances, err := h.service.ListForAdmin(c.UserContext(), principal.Admin, filter)
	if err != nil {
		return err
	}

	items := make([]dto.GrievanceSummary, 0, len(grievances))
	for i := range grievances {
		items = append(items, toSummary(&grievances[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"pagination": fiber.Map{
			"limit":  filter.Limit,
			"offset": filter.Offset,
			"count":  len(items),
		},
	})
}

// Get GET /api/v1/admin/grievances/:token.
func (h *AdminGrievancesHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	grievance, history, err := h.service.GetForAdmin(c.UserContext(), principal.Admin, c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": toDetail(grievance, history)})
}

// UpdateStatus PATCH /api/v1/admin/grievances/:token/status.
func (h *AdminGrievancesHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !req.Status.IsValid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}

	grievance, err := h.service.UpdateStatus(c.UserContext(), principal.Admin, c.Params("token"), req.Status, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": toSummary(grievance)})
}

// OverridePriority PATCH /api/v1/admin/grievances/:token/priority.
func (h *AdminGrievancesHandler) OverridePriority(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.OverridePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	grievance, err := h.service.OverridePriority(c.UserContext(), principal.Admin, c.Params("token"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": toSummary(grievance)})
}

// Reclassify POST /api/v1/admin/grievances/:token/reclassify.
func (h *AdminGrievancesHandler) Reclassify(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	grievance, err := h.service.Reclassify(c.UserContext(), principal.Admin, c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": toSummary(grievance)})
}

// Stats GET /api/v1/admin/grievances/stats.
func (h *AdminGrievancesHandler) Stats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	stats, err := h.service.Stats(c.UserContext(), principal.Admin)
	if err != nil {
		return err
	}

	resp := dto.StatsResponse{
		Total:        stats.Total,
		ByDepartment: make(map[string]int64, len(stats.ByDepartment)),
		ByStatus:     make(map[string]int64, len(stats.ByStatus)),
		ByPriority:   make(map[string]int64, len(stats.ByPriority)),
	}
	for dept, count := range stats.ByDepartment {
		resp.ByDepartment[string(dept)] = count
	}
	for status, count := range stats.ByStatus {
		resp.ByStatus[string(status)] = count
	}
	for priority, count := range stats.ByPriority {
		resp.ByPriority[strconv.Itoa(priority)] = count
	}
	return c.JSON(fiber.Map{"data": resp})
}

func parseGrievanceQuery(c *fiber.Ctx) (service.AdminListFilter, error) {
	filter := service.AdminListFilter{Limit: defaultPageSize}

	for _, raw := range splitCSV(c.Query("status")) {
		status := domain.GrievanceStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			return filter, apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range splitCSV(c.Query("department")) {
		dept := domain.Department(strings.ToUpper(raw))
		if !dept.IsValid() {
			return filter, apperrors.NewValidationError("unknown department", map[string]any{"department": raw})
		}
		filter.Departments = append(filter.Departments, dept)
	}
	for _, raw := range splitCSV(c.Query("priority")) {
		priority, err := strconv.Atoi(raw)
		if err != nil || !domain.IsValidPriority(priority) {
			return filter, apperrors.NewValidationError("invalid priority", map[string]any{"priority": raw})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}

	for _, raw := range splitCSV(c.Query("classification_state")) {
		state := domain.ClassificationState(strings.ToUpper(raw))
		if !state.IsValid() {
			return filter, apperrors.NewValidationError("unknown classification state", map[string]any{"classification_state": raw})
		}
		filter.ClassificationStates = append(filter.ClassificationStates, state)
	}

	if ward := strings.TrimSpace(c.Query("ward")); ward != "" {
		filter.LocationWard = &ward
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}

	if raw := c.Query("created_from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, apperrors.NewValidationError("created_from must be RFC3339", nil)
		}
		filter.CreatedFrom = &from
	}
	if raw := c.Query("created_to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, apperrors.NewValidationError("created_to must be RFC3339", nil)
		}
		filter.CreatedTo = &to
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	return filter, nil
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func toSummary(g *domain.Grievance) dto.GrievanceSummary {
	return dto.GrievanceSummary{
		TrackingToken:       g.TrackingToken,
		Description:         g.Description,
		LocationWard:        g.LocationWard,
		Department:          g.Department,
		Priority:            g.Priority,
		Status:              g.Status,
		ClassificationState: g.ClassificationState,
		CreatedAt:           g.CreatedAt,
		UpdatedAt:           g.UpdatedAt,
	}
}

func toDetail(g *domain.Grievance, history []domain.GrievanceHistory) dto.GrievanceDetail {
	entries := make([]dto.HistoryEntry, 0, len(history))
	for _, h := range history {
		entries = append(entries, dto.HistoryEntry{
			ChangeType:    h.ChangeType,
			ChangedByType: h.ChangedByType,
			ChangedByID:   h.ChangedByID,
			OldValue:      h.OldValue,
			NewValue:      h.NewValue,
			CreatedAt:     h.CreatedAt,
		})
	}
	return dto.GrievanceDetail{
		TrackingToken:       g.TrackingToken,
		Description:         g.Description,
		CitizenName:         g.CitizenName,
		ContactPhone:        g.ContactPhone,
		ContactEmail:        g.ContactEmail,
		LocationWard:        g.LocationWard,
		Department:          g.Department,
		Priority:            g.Priority,
		SuggestedAction:     g.SuggestedAction,
		ClassifierModel:     g.ClassifierModel,
		ClassificationState: g.ClassificationState,
		Status:              g.Status,
		ResolutionNote:      g.ResolutionNote,
		CreatedAt:           g.CreatedAt,
		UpdatedAt:           g.UpdatedAt,
		ResolvedAt:          g.ResolvedAt,
		History:             entries,
	}
}
