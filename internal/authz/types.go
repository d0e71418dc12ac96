package authz

import (
	"fmt"
	"strings"
	"time"
)

// RoleKind is the closed structural classification of a role. Baseline
// roles are hard-gated to their own resources; privileged roles are gated
// purely by permission-set membership.
type RoleKind string

const (
	RoleKindBaseline   RoleKind = "baseline"
	RoleKindPrivileged RoleKind = "privileged"
)

// ParseRoleKind validates external input against the closed kind set.
func ParseRoleKind(raw string) (RoleKind, error) {
	switch RoleKind(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleKindBaseline:
		return RoleKindBaseline, nil
	case RoleKindPrivileged:
		return RoleKindPrivileged, nil
	default:
		return "", fmt.Errorf("%w: unknown role kind %q", ErrInvalidInput, raw)
	}
}

// Well-known role names seeded into the catalog.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Sentinel permission names. Their mere presence in a role's effective set
// grants universal access regardless of the specific permission requested.
const (
	PermissionAdmin      = "ADMIN"
	PermissionFullAccess = "FULL_ACCESS"
)

// Standard CRUD permission names.
const (
	PermissionCreate = "CREATE"
	PermissionRead   = "READ"
	PermissionUpdate = "UPDATE"
	PermissionDelete = "DELETE"
)

// Role is a named grouping of permissions, unique by name.
type Role struct {
	ID   int      `json:"id"`
	Name string   `json:"name"`
	Kind RoleKind `json:"kind"`
}

// Permission is a fine-grained capability, unique by name.
type Permission struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Grant links a role to a permission, unique on (role, permission).
type Grant struct {
	ID             int    `json:"id"`
	RoleID         int    `json:"role_id"`
	PermissionID   int    `json:"permission_id"`
	RoleName       string `json:"role_name"`
	PermissionName string `json:"permission_name"`
	Description    string `json:"description,omitempty"`
}

// Principal is the verified identity attached to a request after
// authentication. It is rebuilt from the token on every request and never
// persisted server-side.
type Principal struct {
	Username  string
	RoleID    int
	RoleName  string
	RoleKind  RoleKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}
