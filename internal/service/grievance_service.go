package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/civicgov/grievance-service/internal/classifier"
	"github.com/civicgov/grievance-service/internal/domain"
	"github.com/civicgov/grievance-service/internal/events"
	"github.com/civicgov/grievance-service/internal/observability"
	"github.com/civicgov/grievance-service/internal/repository"
	apperrors "github.com/civicgov/grievance-service/pkg/errorutil"
)

// TrackingCache abstracts the Redis snapshot cache for tracking lookups.
type TrackingCache interface {
	Get(ctx context.Context, token string) (*domain.Grievance, bool)
	Set(ctx context.Context, grievance *domain.Grievance)
	Invalidate(ctx context.Context, token string)
}

// GrievanceService coordinates intake, tracking and admin workflows.
type GrievanceService struct {
	grievances repository.GrievanceRepository
	history    repository.GrievanceHistoryRepository
	primary    classifier.Classifier
	fallback   classifier.Classifier
	cache      TrackingCache
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// GrievanceDependencies bundles collaborators for the service.
type GrievanceDependencies struct {
	GrievanceRepo repository.GrievanceRepository
	HistoryRepo   repository.GrievanceHistoryRepository
	// Primary is the hosted model classifier; may be nil when unconfigured.
	Primary    classifier.Classifier
	Fallback   classifier.Classifier
	Cache      TrackingCache
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// SubmitInput describes a citizen submission.
type SubmitInput struct {
	Description  string
	CitizenName  string
	ContactPhone string
	ContactEmail string
	LocationWard string
}

// AdminListFilter describes admin listing filters.
type AdminListFilter struct {
	Statuses             []domain.GrievanceStatus
	Departments          []domain.Department
	Priorities           []int
	LocationWard         *string
	ClassificationStates []domain.ClassificationState
	SearchTerm           *string
	CreatedFrom          *time.Time
	CreatedTo            *time.Time
	Limit                int
	Offset               int
}

// DashboardStats aggregates counts for the admin dashboard.
type DashboardStats struct {
	Total        int64
	ByDepartment map[domain.Department]int64
	ByStatus     map[domain.GrievanceStatus]int64
	ByPriority   map[int]int64
}

// NewGrievanceService constructs the service.
func NewGrievanceService(deps GrievanceDependencies) *GrievanceService {
	return &GrievanceService{
		grievances: deps.GrievanceRepo,
		history:    deps.HistoryRepo,
		primary:    deps.Primary,
		fallback:   deps.Fallback,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

const minDescriptionLen = 10

// tokenCollisionRetries bounds regeneration attempts when a randomly
// generated tracking token already exists.
const tokenCollisionRetries = 3

// Submit validates the grievance, classifies it, persists the record and
// returns it with the generated tracking token. A classifier failure never
// fails the intake: the record is routed by the fallback and flagged PENDING
// so the background sweep retries the hosted model later.
func (s *GrievanceService) Submit(ctx context.Context, input SubmitInput) (*domain.Grievance, error) {
	description := strings.TrimSpace(input.Description)
	if len(description) < minDescriptionLen {
		return nil, apperrors.NewValidationError("description too short", map[string]any{
			"min_length": minDescriptionLen,
		})
	}

	result, state := s.classify(ctx, classifier.Input{
		Description:  description,
		LocationWard: strings.TrimSpace(input.LocationWard),
	})

	grievance := &domain.Grievance{
		TrackingToken:       generateTrackingToken(),
		Description:         description,
		CitizenName:         strings.TrimSpace(input.CitizenName),
		ContactPhone:        strings.TrimSpace(input.ContactPhone),
		ContactEmail:        strings.TrimSpace(input.ContactEmail),
		LocationWard:        strings.TrimSpace(input.LocationWard),
		Department:          result.Department,
		Priority:            result.Priority,
		SuggestedAction:     result.SuggestedAction,
		ClassifierModel:     result.Model,
		ClassificationState: state,
		Status:              domain.GrievanceStatusSubmitted,
	}

	for attempt := 0; ; attempt++ {
		err := s.grievances.Create(ctx, grievance)
		if err == nil {
			break
		}
		if attempt < tokenCollisionRetries && isUniqueViolation(err) {
			grievance.TrackingToken = generateTrackingToken()
			continue
		}
		return nil, apperrors.MapError(err)
	}

	s.recordClassification(ctx, domain.ActorTypeSystem, nil, grievance, "", result, state)

	if s.metrics != nil {
		s.metrics.GrievancesSubmitted.WithLabelValues(string(grievance.Department)).Inc()
	}
	s.publishEvent(ctx, events.Event{
		Type:          events.EventGrievanceSubmitted,
		GrievanceID:   grievance.ID,
		TrackingToken: grievance.TrackingToken,
		Actor:         events.Actor{Type: domain.ActorTypeCitizen},
		Payload: events.GrievanceSubmittedPayload{
			Department:   grievance.Department,
			Priority:     grievance.Priority,
			LocationWard: grievance.LocationWard,
		},
	})
	return grievance, nil
}

// Track returns the grievance for a citizen-held tracking token, preferring
// the cache.
func (s *GrievanceService) Track(ctx context.Context, token string) (*domain.Grievance, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewValidationError("tracking token required", nil)
	}
	if s.cache != nil {
		if grievance, ok := s.cache.Get(ctx, token); ok {
			return grievance, nil
		}
	}
	grievance, err := s.grievances.GetByTrackingToken(ctx, token)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("grievance", map[string]any{"tracking_token": token})
		}
		return nil, apperrors.MapError(err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, grievance)
	}
	return grievance, nil
}

// GetForAdmin fetches a grievance plus audit history, enforcing department scope.
func (s *GrievanceService) GetForAdmin(ctx context.Context, admin *domain.AdminUser, token string) (*domain.Grievance, []domain.GrievanceHistory, error) {
	grievance, err := s.getByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if !admin.CanAccessDepartment(grievance.Department) {
		return nil, nil, apperrors.NewForbidden("grievance outside department scope")
	}
	history, err := s.history.ListByGrievance(ctx, grievance.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return grievance, history, nil
}

// ListForAdmin returns grievances matching the filter, scoped to the
// officer's department when applicable.
func (s *GrievanceService) ListForAdmin(ctx context.Context, admin *domain.AdminUser, filter AdminListFilter) ([]domain.Grievance, error) {
	repoFilter := repository.GrievanceFilter{
		Statuses:             filter.Statuses,
		Departments:          filter.Departments,
		Priorities:           filter.Priorities,
		LocationWard:         filter.LocationWard,
		ClassificationStates: filter.ClassificationStates,
		SearchTerm:           filter.SearchTerm,
		CreatedFrom:          filter.CreatedFrom,
		CreatedTo:            filter.CreatedTo,
		Limit:                filter.Limit,
		Offset:               filter.Offset,
	}
	if admin.Role == domain.AdminRoleOfficer {
		// An officer without a department has no scope and sees nothing,
		// matching CanAccessDepartment on the single-record paths.
		if admin.Department == nil {
			return nil, nil
		}
		repoFilter.Departments = []domain.Department{*admin.Department}
	}
	grievances, err := s.grievances.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return grievances, nil
}

// UpdateStatus transitions a grievance along the allowed graph.
func (s *GrievanceService) UpdateStatus(ctx context.Context, admin *domain.AdminUser, token string, newStatus domain.GrievanceStatus, note string) (*domain.Grievance, error) {
	grievance, err := s.getByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !admin.CanAccessDepartment(grievance.Department) {
		return nil, apperrors.NewForbidden("grievance outside department scope")
	}
	if !domain.IsValidTransition(grievance.Status, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": grievance.Status,
			"to":   newStatus,
		})
	}

	oldStatus := grievance.Status
	grievance.Status = newStatus
	note = strings.TrimSpace(note)
	if note != "" {
		grievance.ResolutionNote = note
	}
	switch newStatus {
	case domain.GrievanceStatusResolved:
		now := time.Now()
		grievance.ResolvedAt = &now
	case domain.GrievanceStatusInProgress:
		grievance.ResolvedAt = nil
	}

	if err := s.grievances.Update(ctx, grievance); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordHistory(ctx, &domain.GrievanceHistory{
		GrievanceID:   grievance.ID,
		ChangedByType: domain.ActorTypeAdmin,
		ChangedByID:   &admin.ID,
		ChangeType:    domain.ChangeTypeStatus,
		OldValue:      map[string]any{"status": oldStatus},
		NewValue:      map[string]any{"status": newStatus, "note": note},
	})
	if s.cache != nil {
		s.cache.Invalidate(ctx, grievance.TrackingToken)
	}
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(newStatus)).Inc()
	}
	s.publishEvent(ctx, events.Event{
		Type:          events.EventGrievanceStatusChange,
		GrievanceID:   grievance.ID,
		TrackingToken: grievance.TrackingToken,
		Actor:         adminActor(admin.ID),
		Payload: events.GrievanceStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   note,
		},
	})
	return grievance, nil
}

// OverridePriority lets an admin replace the classified priority.
func (s *GrievanceService) OverridePriority(ctx context.Context, admin *domain.AdminUser, token string, newPriority int) (*domain.Grievance, error) {
	if !domain.IsValidPriority(newPriority) {
		return nil, apperrors.NewValidationError("priority out of range", map[string]any{
			"min": domain.PriorityMin,
			"max": domain.PriorityMax,
		})
	}
	grievance, err := s.getByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !admin.CanAccessDepartment(grievance.Department) {
		return nil, apperrors.NewForbidden("grievance outside department scope")
	}

	oldPriority := grievance.Priority
	grievance.Priority = newPriority
	grievance.ClassificationState = domain.ClassificationManual
	if err := s.grievances.Update(ctx, grievance); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordHistory(ctx, &domain.GrievanceHistory{
		GrievanceID:   grievance.ID,
		ChangedByType: domain.ActorTypeAdmin,
		ChangedByID:   &admin.ID,
		ChangeType:    domain.ChangeTypePriority,
		OldValue:      map[string]any{"priority": oldPriority},
		NewValue:      map[string]any{"priority": newPriority},
	})
	if s.cache != nil {
		s.cache.Invalidate(ctx, grievance.TrackingToken)
	}
	s.publishEvent(ctx, events.Event{
		Type:          events.EventGrievancePrioritySet,
		GrievanceID:   grievance.ID,
		TrackingToken: grievance.TrackingToken,
		Actor:         adminActor(admin.ID),
		Payload: events.GrievancePriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return grievance, nil
}

// Reclassify re-runs the hosted model for a grievance an admin selected.
func (s *GrievanceService) Reclassify(ctx context.Context, admin *domain.AdminUser, token string) (*domain.Grievance, error) {
	grievance, err := s.getByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !admin.CanAccessDepartment(grievance.Department) {
		return nil, apperrors.NewForbidden("grievance outside department scope")
	}
	if s.primary == nil {
		return nil, apperrors.NewConflict("hosted classifier not configured", nil)
	}
	if err := s.applyClassification(ctx, grievance, &admin.ID); err != nil {
		return nil, err
	}
	return grievance, nil
}

// ReclassifyPending re-runs the hosted model over records the fallback routed.
// Called by the background worker; returns how many records were upgraded.
func (s *GrievanceService) ReclassifyPending(ctx context.Context, batchSize int) (int, error) {
	if s.primary == nil {
		return 0, nil
	}
	pending, err := s.grievances.ListPendingClassification(ctx, batchSize)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	upgraded := 0
	for i := range pending {
		if ctx.Err() != nil {
			return upgraded, ctx.Err()
		}
		if err := s.applyClassification(ctx, &pending[i], nil); err != nil {
			if s.metrics != nil {
				s.metrics.ClassificationsTotal.WithLabelValues("retry_failed").Inc()
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.ClassificationsTotal.WithLabelValues("retry_ok").Inc()
		}
		upgraded++
	}
	return upgraded, nil
}

// Stats aggregates dashboard counts, scoped for officers.
func (s *GrievanceService) Stats(ctx context.Context, admin *domain.AdminUser) (*DashboardStats, error) {
	counts, err := s.grievances.CountByDimensions(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	stats := &DashboardStats{
		ByDepartment: make(map[domain.Department]int64),
		ByStatus:     make(map[domain.GrievanceStatus]int64),
		ByPriority:   make(map[int]int64),
	}
	for _, count := range counts {
		if !admin.CanAccessDepartment(count.Department) {
			continue
		}
		stats.Total += count.Count
		stats.ByDepartment[count.Department] += count.Count
		stats.ByStatus[count.Status] += count.Count
		stats.ByPriority[count.Priority] += count.Count
	}
	return stats, nil
}

func (s *GrievanceService) getByToken(ctx context.Context, token string) (*domain.Grievance, error) {
	token = strings.TrimSpace(token)
	grievance, err := s.grievances.GetByTrackingToken(ctx, token)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("grievance", map[string]any{"tracking_token": token})
		}
		return nil, apperrors.MapError(err)
	}
	return grievance, nil
}

// classify runs the hosted model and falls back on failure.
func (s *GrievanceService) classify(ctx context.Context, input classifier.Input) (*classifier.Result, domain.ClassificationState) {
	if s.primary != nil {
		start := time.Now()
		result, err := s.primary.Classify(ctx, input)
		if s.metrics != nil {
			s.metrics.ClassificationDuration.Observe(time.Since(start).Seconds())
		}
		if err == nil {
			if s.metrics != nil {
				s.metrics.ClassificationsTotal.WithLabelValues("classified").Inc()
			}
			return result, domain.ClassificationClassified
		}
		s.logger.Warn("hosted classification failed; using fallback", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.ClassificationsTotal.WithLabelValues("fallback").Inc()
	}
	result, _ := s.fallback.Classify(ctx, input)
	return result, domain.ClassificationPending
}

// applyClassification re-runs the primary classifier and persists the result.
func (s *GrievanceService) applyClassification(ctx context.Context, grievance *domain.Grievance, actorID *string) error {
	result, err := s.primary.Classify(ctx, classifier.Input{
		Description:  grievance.Description,
		LocationWard: grievance.LocationWard,
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	oldDept := grievance.Department
	grievance.Department = result.Department
	grievance.Priority = result.Priority
	grievance.SuggestedAction = result.SuggestedAction
	grievance.ClassifierModel = result.Model
	grievance.ClassificationState = domain.ClassificationClassified
	if err := s.grievances.Update(ctx, grievance); err != nil {
		return apperrors.MapError(err)
	}

	actorType := domain.ActorTypeSystem
	if actorID != nil {
		actorType = domain.ActorTypeAdmin
	}
	s.recordClassification(ctx, actorType, actorID, grievance, oldDept, result, domain.ClassificationClassified)
	if s.cache != nil {
		s.cache.Invalidate(ctx, grievance.TrackingToken)
	}
	s.publishEvent(ctx, events.Event{
		Type:          events.EventGrievanceClassified,
		GrievanceID:   grievance.ID,
		TrackingToken: grievance.TrackingToken,
		Actor:         events.Actor{Type: actorType, AdminID: actorID},
		Payload: events.GrievanceClassifiedPayload{
			OldDepartment: oldDept,
			NewDepartment: grievance.Department,
			Priority:      grievance.Priority,
			Model:         result.Model,
			State:         domain.ClassificationClassified,
		},
	})
	return nil
}

func (s *GrievanceService) recordClassification(ctx context.Context, actorType domain.ActorType, actorID *string, grievance *domain.Grievance, oldDept domain.Department, result *classifier.Result, state domain.ClassificationState) {
	s.recordHistory(ctx, &domain.GrievanceHistory{
		GrievanceID:   grievance.ID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    domain.ChangeTypeClassification,
		OldValue:      map[string]any{"department": oldDept},
		NewValue: map[string]any{
			"department": result.Department,
			"priority":   result.Priority,
			"model":      result.Model,
			"state":      state,
		},
	})
}

func (s *GrievanceService) recordHistory(ctx context.Context, entry *domain.GrievanceHistory) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("failed to record history entry",
			zap.String("grievance_id", entry.GrievanceID),
			zap.Error(err))
	}
}

func (s *GrievanceService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func adminActor(adminID string) events.Actor {
	return events.Actor{Type: domain.ActorTypeAdmin, AdminID: &adminID}
}

// generateTrackingToken follows the MH-G-XXXXXXXX citizen-facing format.
func generateTrackingToken() string {
	return "MH-G-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
