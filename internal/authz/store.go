package authz

import "context"

// CatalogStore is the role-permission lookup collaborator. The catalog is
// open and data-driven; only the role kinds form a closed set.
type CatalogStore interface {
	RoleByID(ctx context.Context, id int) (Role, error)
	RoleByName(ctx context.Context, name string) (Role, error)
	Roles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, name string, kind RoleKind) (Role, error)
	DeleteRole(ctx context.Context, id int) error

	Permissions(ctx context.Context) ([]Permission, error)
	CreatePermission(ctx context.Context, name string) (Permission, error)
	DeletePermission(ctx context.Context, id int) error

	PermissionsForRole(ctx context.Context, roleID int) ([]Permission, error)
	Grants(ctx context.Context) ([]Grant, error)
	Grant(ctx context.Context, roleID, permissionID int, description string) (Grant, error)
	RevokeGrant(ctx context.Context, id int) error
}
