package shared

// Core platform permissions. Module-scoped permission names are stored in the
// database; these constants cover the administration surface of the app itself.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"
	PermPermissionsEdit = "permissions.edit"

	PermModulesView = "modules.view"
	PermModulesEdit = "modules.edit"
)

// AdminScopes lists all permissions related to platform administration.
func AdminScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermPermissionsEdit,
		PermModulesView,
		PermModulesEdit,
	}
}
