package authz

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Resolver evaluates authorization decisions against the role-permission
// catalog. Effective permission sets are memoized per role; catalog
// mutations are administrative and low-frequency, so callers invalidate
// explicitly and staleness on the order of seconds is acceptable.
type Resolver struct {
	store CatalogStore

	mu    sync.RWMutex
	cache map[int]map[string]struct{}
}

// NewResolver builds a Resolver over the given catalog store.
func NewResolver(store CatalogStore) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: catalog store is required", ErrInvalidInput)
	}
	return &Resolver{
		store: store,
		cache: make(map[int]map[string]struct{}),
	}, nil
}

// EffectivePermissions returns the permission-name set reachable through
// the role's grants.
func (r *Resolver) EffectivePermissions(ctx context.Context, roleID int) (map[string]struct{}, error) {
	r.mu.RLock()
	cached, ok := r.cache[roleID]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	perms, err := r.store.PermissionsForRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p.Name] = struct{}{}
	}

	r.mu.Lock()
	r.cache[roleID] = set
	r.mu.Unlock()
	return set, nil
}

// Invalidate drops the memoized set for one role.
func (r *Resolver) Invalidate(roleID int) {
	r.mu.Lock()
	delete(r.cache, roleID)
	r.mu.Unlock()
}

// InvalidateAll drops every memoized set. Called after catalog mutations
// whose affected roles are not known to the caller.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[int]map[string]struct{})
	r.mu.Unlock()
}

// Authorize decides whether principal may perform requiredPermission on the
// resource owned by targetUsername.
//
// The model is two-tier: ownership is a hard gate for baseline-kind roles
// and cannot be overridden by permission grants, while privileged roles are
// gated purely by permission-set membership with the ADMIN role name and
// the ADMIN/FULL_ACCESS sentinels as universal overrides.
func (r *Resolver) Authorize(ctx context.Context, principal Principal, targetUsername, requiredPermission string) error {
	targetUsername = strings.TrimSpace(targetUsername)
	if principal.Username == "" || targetUsername == "" || requiredPermission == "" {
		return fmt.Errorf("%w: principal, target and permission are required", ErrInvalidInput)
	}

	if principal.RoleKind == RoleKindBaseline && principal.Username != targetUsername {
		return ErrForbidden
	}
	if principal.RoleName == RoleAdmin {
		return nil
	}

	set, err := r.EffectivePermissions(ctx, principal.RoleID)
	if err != nil {
		return err
	}
	if hasAny(set, requiredPermission, PermissionAdmin, PermissionFullAccess) {
		return nil
	}
	return ErrForbidden
}

// AuthorizeAdminOnly decides operations with no per-resource ownership
// concept, such as managing the permission catalog itself.
func (r *Resolver) AuthorizeAdminOnly(ctx context.Context, principal Principal) error {
	if principal.Username == "" {
		return fmt.Errorf("%w: principal is required", ErrInvalidInput)
	}
	if principal.RoleName == RoleAdmin {
		return nil
	}
	set, err := r.EffectivePermissions(ctx, principal.RoleID)
	if err != nil {
		return err
	}
	if hasAny(set, PermissionAdmin, PermissionFullAccess) {
		return nil
	}
	return ErrForbidden
}

func hasAny(set map[string]struct{}, names ...string) bool {
	for _, name := range names {
		if _, ok := set[name]; ok {
			return true
		}
	}
	return false
}
