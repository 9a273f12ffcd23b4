package rbac

// Role as seen by the resolver.
type Role struct {
	ID          int64
	Name        string
	Description string
	IsSystem    bool
}

// Permission is an effective grant with its owning module's name attached.
type Permission struct {
	ID          int64
	ModuleID    int64
	Name        string
	Description string
	ModuleName  string
}
