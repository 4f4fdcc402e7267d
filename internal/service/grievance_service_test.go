package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicgov/grievance-service/internal/classifier"
	"github.com/civicgov/grievance-service/internal/domain"
	"github.com/civicgov/grievance-service/internal/events"
	"github.com/civicgov/grievance-service/internal/repository"
)

// fakeGrievanceRepo is an in-memory GrievanceRepository.
type fakeGrievanceRepo struct {
	byToken map[string]*domain.Grievance
	counts  []repository.StatusCount
	seq     int
	// tokenCollisions makes the next N creates fail with a unique violation.
	tokenCollisions int
}

func newFakeGrievanceRepo() *fakeGrievanceRepo {
	return &fakeGrievanceRepo{byToken: map[string]*domain.Grievance{}}
}

func (r *fakeGrievanceRepo) Create(_ context.Context, g *domain.Grievance) error {
	if r.tokenCollisions > 0 {
		r.tokenCollisions--
		return &pgconn.PgError{Code: "23505", ConstraintName: "grievances_tracking_token_key"}
	}
	if _, exists := r.byToken[g.TrackingToken]; exists {
		return &pgconn.PgError{Code: "23505", ConstraintName: "grievances_tracking_token_key"}
	}
	r.seq++
	g.ID = fmt.Sprintf("id-%d", r.seq)
	copied := *g
	r.byToken[g.TrackingToken] = &copied
	return nil
}

func (r *fakeGrievanceRepo) Update(_ context.Context, g *domain.Grievance) error {
	if _, exists := r.byToken[g.TrackingToken]; !exists {
		return pgx.ErrNoRows
	}
	copied := *g
	r.byToken[g.TrackingToken] = &copied
	return nil
}

func (r *fakeGrievanceRepo) GetByID(_ context.Context, id string) (*domain.Grievance, error) {
	for _, g := range r.byToken {
		if g.ID == id {
			copied := *g
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeGrievanceRepo) GetByTrackingToken(_ context.Context, token string) (*domain.Grievance, error) {
	g, ok := r.byToken[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *g
	return &copied, nil
}

func (r *fakeGrievanceRepo) ListWithFilter(_ context.Context, filter repository.GrievanceFilter) ([]domain.Grievance, error) {
	var result []domain.Grievance
	for _, g := range r.byToken {
		if len(filter.Departments) > 0 {
			matched := false
			for _, dept := range filter.Departments {
				if g.Department == dept {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		result = append(result, *g)
	}
	return result, nil
}

func (r *fakeGrievanceRepo) ListPendingClassification(_ context.Context, limit int) ([]domain.Grievance, error) {
	var result []domain.Grievance
	for _, g := range r.byToken {
		if g.ClassificationState == domain.ClassificationPending && len(result) < limit {
			result = append(result, *g)
		}
	}
	return result, nil
}

func (r *fakeGrievanceRepo) CountByDimensions(context.Context) ([]repository.StatusCount, error) {
	return r.counts, nil
}

// fakeHistoryRepo records audit entries in memory.
type fakeHistoryRepo struct {
	entries []domain.GrievanceHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, h *domain.GrievanceHistory) error {
	r.entries = append(r.entries, *h)
	return nil
}

func (r *fakeHistoryRepo) ListByGrievance(_ context.Context, grievanceID string) ([]domain.GrievanceHistory, error) {
	var result []domain.GrievanceHistory
	for _, entry := range r.entries {
		if entry.GrievanceID == grievanceID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// scriptedClassifier returns canned results or an error.
type scriptedClassifier struct {
	result *classifier.Result
	err    error
	calls  int
}

func (c *scriptedClassifier) Classify(context.Context, classifier.Input) (*classifier.Result, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	copied := *c.result
	return &copied, nil
}

// fakeCache tracks cache interactions.
type fakeCache struct {
	store       map[string]*domain.Grievance
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string]*domain.Grievance{}}
}

func (c *fakeCache) Get(_ context.Context, token string) (*domain.Grievance, bool) {
	g, ok := c.store[token]
	return g, ok
}

func (c *fakeCache) Set(_ context.Context, g *domain.Grievance) {
	c.store[g.TrackingToken] = g
}

func (c *fakeCache) Invalidate(_ context.Context, token string) {
	c.invalidated = append(c.invalidated, token)
	delete(c.store, token)
}

type fixture struct {
	svc     *GrievanceService
	repo    *fakeGrievanceRepo
	history *fakeHistoryRepo
	primary *scriptedClassifier
	cache   *fakeCache
	events  []events.Event
}

func newFixture(t *testing.T, primary *scriptedClassifier) *fixture {
	t.Helper()
	f := &fixture{
		repo:    newFakeGrievanceRepo(),
		history: &fakeHistoryRepo{},
		primary: primary,
		cache:   newFakeCache(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{
		events.EventGrievanceSubmitted,
		events.EventGrievanceClassified,
		events.EventGrievanceStatusChange,
		events.EventGrievancePrioritySet,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.events = append(f.events, e)
			return nil
		})
	}

	deps := GrievanceDependencies{
		GrievanceRepo: f.repo,
		HistoryRepo:   f.history,
		Fallback:      classifier.NewKeywordClassifier(),
		Cache:         f.cache,
		Dispatcher:    dispatcher,
		Logger:        zap.NewNop(),
	}
	if primary != nil {
		deps.Primary = primary
	}
	f.svc = NewGrievanceService(deps)
	return f
}

func adminFor(role domain.AdminRole, dept *domain.Department) *domain.AdminUser {
	return &domain.AdminUser{ID: "admin-1", Role: role, Department: dept, Active: true}
}

func TestSubmitWithHostedClassifier(t *testing.T) {
	f := newFixture(t, &scriptedClassifier{result: &classifier.Result{
		Department:      domain.DepartmentWaterSupply,
		Priority:        4,
		SuggestedAction: "Dispatch repair crew within 24 hours.",
		Model:           "gemini-test",
	}})

	grievance, err := f.svc.Submit(context.Background(), SubmitInput{
		Description:  "The main water pipe on Elm Street burst and the road is flooding.",
		CitizenName:  "A Citizen",
		LocationWard: "Kothrud",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(grievance.TrackingToken, "MH-G-"))
	assert.Len(t, grievance.TrackingToken, 13)
	assert.Equal(t, domain.DepartmentWaterSupply, grievance.Department)
	assert.Equal(t, 4, grievance.Priority)
	assert.Equal(t, domain.ClassificationClassified, grievance.ClassificationState)
	assert.Equal(t, domain.GrievanceStatusSubmitted, grievance.Status)

	// Audit entry and event recorded.
	require.Len(t, f.history.entries, 1)
	assert.Equal(t, domain.ChangeTypeClassification, f.history.entries[0].ChangeType)
	require.Len(t, f.events, 1)
	assert.Equal(t, events.EventGrievanceSubmitted, f.events[0].Type)
}

func TestSubmitFallsBackWhenClassifierFails(t *testing.T) {
	f := newFixture(t, &scriptedClassifier{err: errors.New("model unavailable")})

	grievance, err := f.svc.Submit(context.Background(), SubmitInput{
		Description: "Garbage is piling up near the school gate since last week.",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DepartmentWasteManagement, grievance.Department)
	assert.Equal(t, domain.ClassificationPending, grievance.ClassificationState)
	assert.Equal(t, classifier.KeywordModel, grievance.ClassifierModel)
	assert.True(t, domain.IsValidPriority(grievance.Priority))
}

func TestSubmitRejectsShortDescription(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Submit(context.Background(), SubmitInput{Description: "bad road"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "description too short")
}

func TestTrackUsesCache(t *testing.T) {
	f := newFixture(t, nil)
	grievance, err := f.svc.Submit(context.Background(), SubmitInput{
		Description: "Street light out near the park entrance for three nights.",
	})
	require.NoError(t, err)

	// First lookup misses the cache and populates it.
	got, err := f.svc.Track(context.Background(), grievance.TrackingToken)
	require.NoError(t, err)
	assert.Equal(t, grievance.ID, got.ID)
	_, cached := f.cache.Get(context.Background(), grievance.TrackingToken)
	assert.True(t, cached)

	// Second lookup is served from the cache even if the repo record vanishes.
	delete(f.repo.byToken, grievance.TrackingToken)
	got, err = f.svc.Track(context.Background(), grievance.TrackingToken)
	require.NoError(t, err)
	assert.Equal(t, grievance.ID, got.ID)
}

func TestTrackUnknownToken(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Track(context.Background(), "MH-G-DEADBEEF")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUpdateStatusHappyPath(t *testing.T) {
	f := newFixture(t, nil)
	grievance, err := f.svc.Submit(context.Background(), SubmitInput{
		Description: "Water leak near the temple crossing, please inspect soon.",
	})
	require.NoError(t, err)
	admin := adminFor(domain.AdminRoleAdmin, nil)

	updated, err := f.svc.UpdateStatus(context.Background(), admin, grievance.TrackingToken, domain.GrievanceStatusInProgress, "crew assigned")
	require.NoError(t, err)
	assert.Equal(t, domain.GrievanceStatusInProgress, updated.Status)

	updated, err = f.svc.UpdateStatus(context.Background(), admin, grievance.TrackingToken, domain.GrievanceStatusResolved, "pipe replaced")
	require.NoError(t, err)
	assert.Equal(t, domain.GrievanceStatusResolved, updated.Status)
	assert.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, "pipe replaced", updated.ResolutionNote)

	// Cache invalidated on each mutation.
	assert.Len(t, f.cache.invalidated, 2)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	f := newFixture(t, nil)
	grievance, err := f.svc.Submit(context.Background(), SubmitInput{
		Description: "Open manhole on the main road is a danger to children.",
	})
	require.NoError(t, err)
	admin := adminFor(domain.AdminRoleAdmin, nil)

	_, err = f.svc.UpdateStatus(context.Background(), admin, grievance.TrackingToken, domain.GrievanceStatusClosed, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status transition")
}

func TestUpdateStatusEnforcesDepartmentScope(t *testing.T) {
	f := newFixture(t, &scriptedClassifier{result: &classifier.Result{
		Department: domain.DepartmentRoadsTransport,
		Priority:   3,
		Model:      "gemini-test",
	}})
	grievance, err := f.svc.Submit(context.Background(), SubmitInput{
		Description: "Potholes across the flyover approach need resurfacing.",
	})
	require.NoError(t, err)

	water := domain.DepartmentWaterSupply
	officer := adminFor(domain.AdminRoleOfficer, &water)
	_, err = f.svc.UpdateStatus(context.Background(), officer, grievance.TrackingToken, domain.GrievanceStatusInProgress, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside department scope")
}

func TestOverridePriority(t *testing.T) {
	f := newFixture(t, nil)
	grievance, err := f.svc.Submit(context.Background(), SubmitInput{
		Description: "Mosquito breeding in stagnant water behind the market.",
	})
	require.NoError(t, err)
	admin := adminFor(domain.AdminRoleAdmin, nil)

	updated, err := f.svc.OverridePriority(context.Background(), admin, grievance.TrackingToken, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Priority)
	assert.Equal(t, domain.ClassificationManual, updated.ClassificationState)

	_, err = f.svc.OverridePriority(context.Background(), admin, grievance.TrackingToken, 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "priority out of range")
}

func TestReclassifyPendingUpgradesFallbackRecords(t *testing.T) {
	primary := &scriptedClassifier{err: errors.New("model unavailable")}
	f := newFixture(t, primary)

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		Description: "Garbage truck has skipped our lane for ten days now.",
	})
	require.NoError(t, err)

	// Model recovers before the sweep runs.
	primary.err = nil
	primary.result = &classifier.Result{
		Department:      domain.DepartmentWasteManagement,
		Priority:        3,
		SuggestedAction: "Schedule pickup.",
		Model:           "gemini-test",
	}

	upgraded, err := f.svc.ReclassifyPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, upgraded)

	remaining, err := f.repo.ListPendingClassification(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSubmitRegeneratesTokenOnCollision(t *testing.T) {
	f := newFixture(t, nil)
	f.repo.tokenCollisions = 2

	grievance, err := f.svc.Submit(context.Background(), SubmitInput{
		Description: "Transformer sparking near the school, wires hanging low.",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(grievance.TrackingToken, "MH-G-"))
	assert.Len(t, f.repo.byToken, 1)
}

func TestSubmitGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t, nil)
	f.repo.tokenCollisions = 10

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		Description: "Transformer sparking near the school, wires hanging low.",
	})
	require.Error(t, err)
	assert.Empty(t, f.repo.byToken)
}

func TestStatsScopedForOfficer(t *testing.T) {
	f := newFixture(t, nil)
	f.repo.counts = []repository.StatusCount{
		{Department: domain.DepartmentWaterSupply, Status: domain.GrievanceStatusSubmitted, Priority: 3, Count: 7},
		{Department: domain.DepartmentWaterSupply, Status: domain.GrievanceStatusResolved, Priority: 2, Count: 2},
		{Department: domain.DepartmentRoadsTransport, Status: domain.GrievanceStatusSubmitted, Priority: 4, Count: 5},
	}

	admin := adminFor(domain.AdminRoleAdmin, nil)
	stats, err := f.svc.Stats(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, int64(14), stats.Total)

	water := domain.DepartmentWaterSupply
	officer := adminFor(domain.AdminRoleOfficer, &water)
	stats, err = f.svc.Stats(context.Background(), officer)
	require.NoError(t, err)
	assert.Equal(t, int64(9), stats.Total)
	assert.Equal(t, int64(9), stats.ByDepartment[domain.DepartmentWaterSupply])
	assert.Zero(t, stats.ByDepartment[domain.DepartmentRoadsTransport])
}

func TestListForAdminScopesOfficers(t *testing.T) {
	f := newFixture(t, &scriptedClassifier{result: &classifier.Result{
		Department: domain.DepartmentWaterSupply,
		Priority:   3,
		Model:      "gemini-test",
	}})
	_, err := f.svc.Submit(context.Background(), SubmitInput{
		Description: "No water supply in our block since yesterday morning.",
	})
	require.NoError(t, err)

	roads := domain.DepartmentRoadsTransport
	officer := adminFor(domain.AdminRoleOfficer, &roads)
	list, err := f.svc.ListForAdmin(context.Background(), officer, AdminListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	water := domain.DepartmentWaterSupply
	officer = adminFor(domain.AdminRoleOfficer, &water)
	list, err = f.svc.ListForAdmin(context.Background(), officer, AdminListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListForAdminOfficerWithoutDepartmentSeesNothing(t *testing.T) {
	f := newFixture(t, &scriptedClassifier{result: &classifier.Result{
		Department: domain.DepartmentWaterSupply,
		Priority:   3,
		Model:      "gemini-test",
	}})
	_, err := f.svc.Submit(context.Background(), SubmitInput{
		Description: "No water supply in our block since yesterday morning.",
	})
	require.NoError(t, err)

	officer := adminFor(domain.AdminRoleOfficer, nil)
	list, err := f.svc.ListForAdmin(context.Background(), officer, AdminListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
