package domain

import "time"

// AdminRole enumerates administrator roles.
type AdminRole string

const (
	// AdminRoleAdmin may act on grievances in any department.
	AdminRoleAdmin AdminRole = "ADMIN"
	// AdminRoleOfficer is scoped to a single department.
	AdminRoleOfficer AdminRole = "OFFICER"
)

// AdminUser models a municipal operator of the admin dashboard.
type AdminUser struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AdminRole
	Department   *Department
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAccessDepartment reports whether the admin may act on records of dept.
func (a *AdminUser) CanAccessDepartment(dept Department) bool {
	if a == nil {
		return false
	}
	if a.Role == AdminRoleAdmin {
		return true
	}
	return a.Department != nil && *a.Department == dept
}
