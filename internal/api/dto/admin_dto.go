package dto

import (
	"time"

	"github.com/civicgov/grievance-service/internal/domain"
)

// AdminLoginRequest payload.
type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.GrievanceStatus `json:"status"`
	Note   string                 `json:"note"`
}

// OverridePriorityRequest payload.
type OverridePriorityRequest struct {
	Priority int `json:"priority"`
}

// GrievanceSummary is the admin list row.
type GrievanceSummary struct {
	TrackingToken       string                     `json:"tracking_token"`
	Description         string                     `json:"description"`
	LocationWard        string                     `json:"location_ward,omitempty"`
	Department          domain.Department          `json:"department"`
	Priority            int                        `json:"priority"`
	Status              domain.GrievanceStatus     `json:"status"`
	ClassificationState domain.ClassificationState `json:"classification_state"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// GrievanceDetail is the full admin view including contact and audit data.
type GrievanceDetail struct {
	TrackingToken       string                     `json:"tracking_token"`
	Description         string                     `json:"description"`
	CitizenName         string                     `json:"citizen_name,omitempty"`
	ContactPhone        string                     `json:"contact_phone,omitempty"`
	ContactEmail        string                     `json:"contact_email,omitempty"`
	LocationWard        string                     `json:"location_ward,omitempty"`
	Department          domain.Department          `json:"department"`
	Priority            int                        `json:"priority"`
	SuggestedAction     string                     `json:"suggested_action,omitempty"`
	ClassifierModel     string                     `json:"classifier_model,omitempty"`
	ClassificationState domain.ClassificationState `json:"classification_state"`
	Status              domain.GrievanceStatus     `json:"status"`
	ResolutionNote      string                     `json:"resolution_note,omitempty"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
	ResolvedAt          *time.Time                 `json:"resolved_at,omitempty"`
	History             []HistoryEntry             `json:"history"`
}

// HistoryEntry mirrors a grievance audit record.
type HistoryEntry struct {
	ChangeType    domain.GrievanceChangeType `json:"change_type"`
	ChangedByType domain.ActorType           `json:"changed_by_type"`
	ChangedByID   *string                    `json:"changed_by_id,omitempty"`
	OldValue      map[string]any             `json:"old_value,omitempty"`
	NewValue      map[string]any             `json:"new_value,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
}

// StatsResponse aggregates dashboard counts.
type StatsResponse struct {
	Total        int64            `json:"total"`
	ByDepartment map[string]int64 `json:"by_department"`
	ByStatus     map[string]int64 `json:"by_status"`
	ByPriority   map[string]int64 `json:"by_priority"`
}
