package dto

import (
	"time"

	"github.com/civicgov/grievance-service/internal/domain"
)

// SubmitGrievanceRequest payload.
type SubmitGrievanceRequest struct {
	Description  string `json:"description"`
	CitizenName  string `json:"citizen_name"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`
	LocationWard string `json:"location_ward"`
}

// SubmitGrievanceResponse returns the tracking token to the citizen.
type SubmitGrievanceResponse struct {
	TrackingToken string                 `json:"tracking_token"`
	Department    domain.Department      `json:"department"`
	Priority      int                    `json:"priority"`
	Status        domain.GrievanceStatus `json:"status"`
	CreatedAt     time.Time              `json:"created_at"`
}

// TrackGrievanceResponse is the citizen-facing status view. Contact details
// are echoed back but internal routing fields are not.
type TrackGrievanceResponse struct {
	TrackingToken  string                 `json:"tracking_token"`
	Description    string                 `json:"description"`
	LocationWard   string                 `json:"location_ward,omitempty"`
	Department     string                 `json:"department"`
	Priority       int                    `json:"priority"`
	Status         domain.GrievanceStatus `json:"status"`
	ResolutionNote string                 `json:"resolution_note,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	ResolvedAt     *time.Time             `json:"resolved_at,omitempty"`
}

// DepartmentResponse lists a routable department.
type DepartmentResponse struct {
	Code domain.Department `json:"code"`
	Name string            `json:"name"`
}
