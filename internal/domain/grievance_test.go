package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    GrievanceStatus
		to      GrievanceStatus
		allowed bool
	}{
		{"submitted to in-progress", GrievanceStatusSubmitted, GrievanceStatusInProgress, true},
		{"submitted to rejected", GrievanceStatusSubmitted, GrievanceStatusRejected, true},
		{"submitted to resolved skips work", GrievanceStatusSubmitted, GrievanceStatusResolved, false},
		{"in-progress to resolved", GrievanceStatusInProgress, GrievanceStatusResolved, true},
		{"resolved to closed", GrievanceStatusResolved, GrievanceStatusClosed, true},
		{"resolved reopened", GrievanceStatusResolved, GrievanceStatusInProgress, true},
		{"closed is terminal", GrievanceStatusClosed, GrievanceStatusInProgress, false},
		{"rejected is terminal", GrievanceStatusRejected, GrievanceStatusSubmitted, false},
		{"no self transition", GrievanceStatusInProgress, GrievanceStatusInProgress, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, IsValidTransition(tc.from, tc.to))
		})
	}
}

func TestDepartmentIsValid(t *testing.T) {
	assert.Len(t, AllDepartments, 11)
	for _, dept := range AllDepartments {
		assert.True(t, dept.IsValid(), "department %s", dept)
		assert.NotEqual(t, string(dept), dept.DisplayName())
	}
	assert.False(t, Department("TELEPATHY").IsValid())
}

func TestIsValidPriority(t *testing.T) {
	assert.False(t, IsValidPriority(0))
	assert.True(t, IsValidPriority(1))
	assert.True(t, IsValidPriority(5))
	assert.False(t, IsValidPriority(6))
	assert.False(t, IsValidPriority(-3))
}

func TestAdminCanAccessDepartment(t *testing.T) {
	water := DepartmentWaterSupply
	admin := &AdminUser{Role: AdminRoleAdmin}
	officer := &AdminUser{Role: AdminRoleOfficer, Department: &water}

	assert.True(t, admin.CanAccessDepartment(DepartmentEncroachment))
	assert.True(t, officer.CanAccessDepartment(DepartmentWaterSupply))
	assert.False(t, officer.CanAccessDepartment(DepartmentPublicHealth))

	var nilAdmin *AdminUser
	assert.False(t, nilAdmin.CanAccessDepartment(DepartmentWaterSupply))
}
