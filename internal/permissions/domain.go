package permissions

// Permission represents an atomic capability scoped to a module.
type Permission struct {
	ID                int64
	ModuleID          int64
	Name              string
	Description       string
	ModuleName        string
	ModuleDisplayName string
}

// ModuleGroup is one active module together with its permissions, in module
// sort order. A module without permissions still yields a group with an
// empty Permissions slice.
type ModuleGroup struct {
	ModuleID          int64
	ModuleName        string
	ModuleDisplayName string
	ModuleIcon        string
	Permissions       []Permission
}
