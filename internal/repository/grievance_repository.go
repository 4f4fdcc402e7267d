package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicgov/grievance-service/internal/domain"
)

// GrievanceFilter captures admin search parameters.
type GrievanceFilter struct {
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

// StatusCount aggregates record counts for the admin dashboard.
type StatusCount struct {
	Department domain.Department
	Status     domain.GrievanceStatus
	Priority   int
	Count      int64
}

// GrievanceRepository encapsulates grievance persistence.
type GrievanceRepository interface {
	Create(ctx context.Context, grievance *domain.Grievance) error
	Update(ctx context.Context, grievance *domain.Grievance) error
	GetByID(ctx context.Context, id string) (*domain.Grievance, error)
	GetByTrackingToken(ctx context.Context, token string) (*domain.Grievance, error)
	ListWithFilter(ctx context.Context, filter GrievanceFilter) ([]domain.Grievance, error)
	ListPendingClassification(ctx context.Context, limit int) ([]domain.Grievance, error)
	CountByDimensions(ctx context.Context) ([]StatusCount, error)
}

type grievanceRepository struct {
	pool *pgxpool.Pool
}

// NewGrievanceRepository instantiates the repository.
func NewGrievanceRepository(pool *pgxpool.Pool) GrievanceRepository {
	return &grievanceRepository{pool: pool}
}

const grievanceColumns = `id, tracking_token, description, citizen_name, contact_phone, contact_email,
               location_ward, department, priority, suggested_action, classifier_model,
               classification_state, status, resolution_note, created_at, updated_at, resolved_at`

func (r *grievanceRepository) Create(ctx context.Context, grievance *domain.Grievance) error {
	const query = `
        INSERT INTO grievances (tracking_token, description, citizen_name, contact_phone, contact_email,
            location_ward, department, priority, suggested_action, classifier_model, classification_state, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		grievance.TrackingToken,
		grievance.Description,
		grievance.CitizenName,
		grievance.ContactPhone,
		grievance.ContactEmail,
		grievance.LocationWard,
		grievance.Department,
		grievance.Priority,
		grievance.SuggestedAction,
		grievance.ClassifierModel,
		grievance.ClassificationState,
		grievance.Status,
	).Scan(&grievance.ID, &grievance.CreatedAt, &grievance.UpdatedAt)
}

func (r *grievanceRepository) Update(ctx context.Context, grievance *domain.Grievance) error {
	const query = `
        UPDATE grievances SET department=$1, priority=$2, suggested_action=$3, classifier_model=$4,
            classification_state=$5, status=$6, resolution_note=$7, resolved_at=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		grievance.Department,
		grievance.Priority,
		grievance.SuggestedAction,
		grievance.ClassifierModel,
		grievance.ClassificationState,
		grievance.Status,
		grievance.ResolutionNote,
		grievance.ResolvedAt,
		grievance.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *grievanceRepository) GetByID(ctx context.Context, id string) (*domain.Grievance, error) {
	query := fmt.Sprintf(`SELECT %s FROM grievances WHERE id=$1`, grievanceColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *grievanceRepository) GetByTrackingToken(ctx context.Context, token string) (*domain.Grievance, error) {
	query := fmt.Sprintf(`SELECT %s FROM grievances WHERE tracking_token=$1`, grievanceColumns)
	return r.fetchSingle(ctx, query, token)
}

func (r *grievanceRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Grievance, error) {
	var grievance domain.Grievance
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&grievance.ID,
		&grievance.TrackingToken,
		&grievance.Description,
		&grievance.CitizenName,
		&grievance.ContactPhone,
		&grievance.ContactEmail,
		&grievance.LocationWard,
		&grievance.Department,
		&grievance.Priority,
		&grievance.SuggestedAction,
		&grievance.ClassifierModel,
		&grievance.ClassificationState,
		&grievance.Status,
		&grievance.ResolutionNote,
		&grievance.CreatedAt,
		&grievance.UpdatedAt,
		&grievance.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &grievance, nil
}

func (r *grievanceRepository) ListWithFilter(ctx context.Context, filter GrievanceFilter) ([]domain.Grievance, error) {
	base := fmt.Sprintf(`SELECT %s FROM grievances`, grievanceColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Departments) > 0 {
		placeholders := make([]string, len(filter.Departments))
		for i, dept := range filter.Departments {
			args = append(args, dept)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("department IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.ClassificationStates) > 0 {
		placeholders := make([]string, len(filter.ClassificationStates))
		for i, state := range filter.ClassificationStates {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("classification_state IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.LocationWard != nil && strings.TrimSpace(*filter.LocationWard) != "" {
		args = append(args, strings.TrimSpace(*filter.LocationWard))
		clauses = append(clauses, fmt.Sprintf("location_ward=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(description) LIKE %s OR LOWER(location_ward) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY priority DESC, created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrievances(rows)
}

func (r *grievanceRepository) ListPendingClassification(ctx context.Context, limit int) ([]domain.Grievance, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM grievances WHERE classification_state=$1 ORDER BY created_at ASC LIMIT %d`,
		grievanceColumns, limit)
	rows, err := r.pool.Query(ctx, query, domain.ClassificationPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrievances(rows)
}

func (r *grievanceRepository) CountByDimensions(ctx context.Context) ([]StatusCount, error) {
	const query = `
        SELECT department, status, priority, COUNT(*)
        FROM grievances
        GROUP BY department, status, priority
        ORDER BY department, status, priority`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var count StatusCount
		if err := rows.Scan(&count.Department, &count.Status, &count.Priority, &count.Count); err != nil {
			return nil, err
		}
		result = append(result, count)
	}
	return result, rows.Err()
}

func scanGrievances(rows pgx.Rows) ([]domain.Grievance, error) {
	var result []domain.Grievance
	for rows.Next() {
		var grievance domain.Grievance
		if err := rows.Scan(
			&grievance.ID,
			&grievance.TrackingToken,
			&grievance.Description,
			&grievance.CitizenName,
			&grievance.ContactPhone,
			&grievance.ContactEmail,
			&grievance.LocationWard,
			&grievance.Department,
			&grievance.Priority,
			&grievance.SuggestedAction,
			&grievance.ClassifierModel,
			&grievance.ClassificationState,
			&grievance.Status,
			&grievance.ResolutionNote,
			&grievance.CreatedAt,
			&grievance.UpdatedAt,
			&grievance.ResolvedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, grievance)
	}
	return result, rows.Err()
}
