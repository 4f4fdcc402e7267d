package domain

import "time"

// GrievanceStatus enumerates lifecycle states for grievances.
type GrievanceStatus string

const (
	GrievanceStatusSubmitted  GrievanceStatus = "SUBMITTED"
	GrievanceStatusInProgress GrievanceStatus = "IN_PROGRESS"
	GrievanceStatusResolved   GrievanceStatus = "RESOLVED"
	GrievanceStatusClosed     GrievanceStatus = "CLOSED"
	GrievanceStatusRejected   GrievanceStatus = "REJECTED"
)

// Department enumerates the municipal departments a grievance can be routed to.
type Department string

const (
	DepartmentWaterSupply         Department = "WATER_SUPPLY"
	DepartmentRoadsTransport      Department = "ROADS_TRANSPORT"
	DepartmentWasteManagement     Department = "WASTE_MANAGEMENT"
	DepartmentPublicHealth        Department = "PUBLIC_HEALTH"
	DepartmentPropertyTax         Department = "PROPERTY_TAX"
	DepartmentElectricity         Department = "ELECTRICITY"
	DepartmentSanitationDrainage  Department = "SANITATION_DRAINAGE"
	DepartmentStreetLighting      Department = "STREET_LIGHTING"
	DepartmentParksRecreation     Department = "PARKS_RECREATION"
	DepartmentBuildingPermissions Department = "BUILDING_PERMISSIONS"
	DepartmentEncroachment        Department = "ENCROACHMENT"
)

// AllDepartments lists every routable department in display order.
var AllDepartments = []Department{
	DepartmentWaterSupply,
	DepartmentRoadsTransport,
	DepartmentWasteManagement,
	DepartmentPublicHealth,
	DepartmentPropertyTax,
	DepartmentElectricity,
	DepartmentSanitationDrainage,
	DepartmentStreetLighting,
	DepartmentParksRecreation,
	DepartmentBuildingPermissions,
	DepartmentEncroachment,
}

var departmentNames = map[Department]string{
	DepartmentWaterSupply:         "Water Supply",
	DepartmentRoadsTransport:      "Roads & Transport",
	DepartmentWasteManagement:     "Waste Management",
	DepartmentPublicHealth:        "Public Health",
	DepartmentPropertyTax:         "Property Tax",
	DepartmentElectricity:         "Electricity",
	DepartmentSanitationDrainage:  "Sanitation & Drainage",
	DepartmentStreetLighting:      "Street Lighting",
	DepartmentParksRecreation:     "Parks & Recreation",
	DepartmentBuildingPermissions: "Building Permissions",
	DepartmentEncroachment:        "Encroachment",
}

// DisplayName returns the human readable department name.
func (d Department) DisplayName() string {
	if name, ok := departmentNames[d]; ok {
		return name
	}
	return string(d)
}

// IsValid reports whether the department is one of the enumerated values.
func (d Department) IsValid() bool {
	_, ok := departmentNames[d]
	return ok
}

// Priority bounds for grievance urgency; 5 is most urgent.
const (
	PriorityMin = 1
	PriorityMax = 5
)

// IsValidPriority reports whether p lies in the supported ordinal scale.
func IsValidPriority(p int) bool {
	return p >= PriorityMin && p <= PriorityMax
}

// ClassificationState tracks how the current department/priority were produced.
type ClassificationState string

const (
	// ClassificationClassified means the external model produced the routing.
	ClassificationClassified ClassificationState = "CLASSIFIED"
	// ClassificationPending means the model call failed and a heuristic
	// fallback routed the record; a background sweep retries these.
	ClassificationPending ClassificationState = "PENDING"
	// ClassificationManual means an administrator overrode the routing.
	ClassificationManual ClassificationState = "MANUAL"
)

// IsValid reports whether the classification state is one of the enumerated values.
func (c ClassificationState) IsValid() bool {
	switch c {
	case ClassificationClassified, ClassificationPending, ClassificationManual:
		return true
	}
	return false
}

// Grievance is the aggregate for citizen complaints.
type Grievance struct {
	ID                  string
	TrackingToken       string
	Description         string
	CitizenName         string
	ContactPhone        string
	ContactEmail        string
	LocationWard        string
	Department          Department
	Priority            int
	SuggestedAction     string
	ClassifierModel     string
	ClassificationState ClassificationState
	Status              GrievanceStatus
	ResolutionNote      string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ResolvedAt          *time.Time
}

var allowedTransitions = map[GrievanceStatus][]GrievanceStatus{
	GrievanceStatusSubmitted:  {GrievanceStatusInProgress, GrievanceStatusRejected},
	GrievanceStatusInProgress: {GrievanceStatusResolved, GrievanceStatusRejected},
	GrievanceStatusResolved:   {GrievanceStatusClosed, GrievanceStatusInProgress},
	GrievanceStatusClosed:     {},
	GrievanceStatusRejected:   {},
}

// IsValid reports whether the status is one of the enumerated values.
func (s GrievanceStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsValidTransition reports whether a grievance may move from current to next.
func IsValidTransition(current, next GrievanceStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
