package domain

import "time"

// GrievanceChangeType captures what changed in a history entry.
type GrievanceChangeType string

const (
	ChangeTypeStatus         GrievanceChangeType = "STATUS_CHANGE"
	ChangeTypePriority       GrievanceChangeType = "PRIORITY_CHANGE"
	ChangeTypeDepartment     GrievanceChangeType = "DEPARTMENT_CHANGE"
	ChangeTypeClassification GrievanceChangeType = "CLASSIFICATION"
)

// GrievanceHistory is an immutable audit trail entry.
type GrievanceHistory struct {
	ID            string
	GrievanceID   string
	ChangedByType ActorType
	ChangedByID   *string
	ChangeType    GrievanceChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
