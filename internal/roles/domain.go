package roles

import "time"

// Role represents a permission grouping. System roles ship with the
// application and cannot be renamed or deleted.
type Role struct {
	ID          int64
	Name        string
	Description string
	IsSystem    bool
}

// Permission is a role's granted permission joined with its owning module.
type Permission struct {
	ID                int64
	ModuleID          int64
	Name              string
	Description       string
	ModuleName        string
	ModuleDisplayName string
}

// Member is a user holding the role.
type Member struct {
	ID         int64
	Username   string
	Email      string
	AssignedAt time.Time
}
