package domain

// ActorType differentiates who performed a change on a grievance.
type ActorType string

const (
	ActorTypeCitizen ActorType = "CITIZEN"
	ActorTypeAdmin   ActorType = "ADMIN"
	ActorTypeSystem  ActorType = "SYSTEM"
)
