package events

import (
	"time"

	"github.com/civicgov/grievance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventGrievanceSubmitted    EventType = "grievance_submitted"
	EventGrievanceClassified   EventType = "grievance_classified"
	EventGrievanceStatusChange EventType = "grievance_status_changed"
	EventGrievancePrioritySet  EventType = "grievance_priority_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.ActorType `json:"type"`
	AdminID *string          `json:"admin_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	GrievanceID   string      `json:"grievance_id"`
	TrackingToken string      `json:"tracking_token"`
	Actor         Actor       `json:"actor"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// GrievanceSubmittedPayload payload.
type GrievanceSubmittedPayload struct {
	Department   domain.Department `json:"department"`
	Priority     int               `json:"priority"`
	LocationWard string            `json:"location_ward,omitempty"`
}

// GrievanceClassifiedPayload payload.
type GrievanceClassifiedPayload struct {
	OldDepartment domain.Department          `json:"old_department"`
	NewDepartment domain.Department          `json:"new_department"`
	Priority      int                        `json:"priority"`
	Model         string                     `json:"model"`
	State         domain.ClassificationState `json:"state"`
}

// GrievanceStatusChangedPayload payload.
type GrievanceStatusChangedPayload struct {
	OldStatus domain.GrievanceStatus `json:"old_status"`
	NewStatus domain.GrievanceStatus `json:"new_status"`
	Comment   string                 `json:"comment,omitempty"`
}

// GrievancePriorityChangedPayload payload.
type GrievancePriorityChangedPayload struct {
	OldPriority int `json:"old_priority"`
	NewPriority int `json:"new_priority"`
}
