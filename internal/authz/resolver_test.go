package authz

import (
	"context"
	"errors"
	"testing"
)

type stubCatalog struct {
	CatalogStore
	permissionsForRole func(context.Context, int) ([]Permission, error)
	calls              int
}

func (s *stubCatalog) PermissionsForRole(ctx context.Context, roleID int) ([]Permission, error) {
	s.calls++
	if s.permissionsForRole != nil {
		return s.permissionsForRole(ctx, roleID)
	}
	return nil, nil
}

func newTestResolver(t *testing.T, fn func(context.Context, int) ([]Permission, error)) (*Resolver, *stubCatalog) {
	t.Helper()
	store := &stubCatalog{permissionsForRole: fn}
	r, err := NewResolver(store)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r, store
}

func baselinePrincipal(username string) Principal {
	return Principal{Username: username, RoleID: 1, RoleName: RoleUser, RoleKind: RoleKindBaseline}
}

func TestBaselineRoleIsRestrictedToSelf(t *testing.T) {
	// Even FULL_ACCESS in the effective set must not expand a
	// baseline-kind role beyond its own resources.
	r, _ := newTestResolver(t, func(_ context.Context, _ int) ([]Permission, error) {
		return []Permission{{ID: 9, Name: PermissionFullAccess}}, nil
	})

	p := baselinePrincipal("alice")
	if err := r.Authorize(context.Background(), p, "bob", PermissionRead); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := r.Authorize(context.Background(), p, "alice", PermissionRead); err != nil {
		t.Fatalf("self access should pass: %v", err)
	}
}

func TestBaselineRoleNeedsGrantedPermissionOnSelf(t *testing.T) {
	r, _ := newTestResolver(t, func(_ context.Context, _ int) ([]Permission, error) {
		return []Permission{{ID: 2, Name: PermissionRead}}, nil
	})

	p := baselinePrincipal("alice")
	if err := r.Authorize(context.Background(), p, "alice", PermissionRead); err != nil {
		t.Fatalf("granted permission on self should pass: %v", err)
	}
	if err := r.Authorize(context.Background(), p, "alice", PermissionDelete); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for missing grant, got %v", err)
	}
}

func TestAdminRoleNameGrantsEverything(t *testing.T) {
	resolveCalled := false
	r, _ := newTestResolver(t, func(_ context.Context, _ int) ([]Permission, error) {
		resolveCalled = true
		return nil, nil
	})

	p := Principal{Username: "root", RoleID: 2, RoleName: RoleAdmin, RoleKind: RoleKindPrivileged}
	if err := r.Authorize(context.Background(), p, "bob", PermissionDelete); err != nil {
		t.Fatalf("ADMIN role should pass: %v", err)
	}
	if err := r.AuthorizeAdminOnly(context.Background(), p); err != nil {
		t.Fatalf("ADMIN role should pass admin-only: %v", err)
	}
	if resolveCalled {
		t.Fatal("ADMIN role name should short-circuit before hitting the catalog")
	}
}

func TestSentinelPermissionsGrantEverything(t *testing.T) {
	for _, sentinel := range []string{PermissionAdmin, PermissionFullAccess} {
		r, _ := newTestResolver(t, func(_ context.Context, _ int) ([]Permission, error) {
			return []Permission{{ID: 7, Name: sentinel}}, nil
		})
		p := Principal{Username: "op", RoleID: 3, RoleName: "OPERATOR", RoleKind: RoleKindPrivileged}
		if err := r.Authorize(context.Background(), p, "bob", PermissionDelete); err != nil {
			t.Fatalf("sentinel %s should pass Authorize: %v", sentinel, err)
		}
		if err := r.AuthorizeAdminOnly(context.Background(), p); err != nil {
			t.Fatalf("sentinel %s should pass AuthorizeAdminOnly: %v", sentinel, err)
		}
	}
}

func TestPrivilegedRoleMayActOnOthersWithGrant(t *testing.T) {
	// A privileged (non-baseline) role with an explicit grant is not
	// subject to the ownership short-circuit.
	r, _ := newTestResolver(t, func(_ context.Context, _ int) ([]Permission, error) {
		return []Permission{{ID: 4, Name: PermissionUpdate}}, nil
	})
	p := Principal{Username: "op", RoleID: 3, RoleName: "OPERATOR", RoleKind: RoleKindPrivileged}
	if err := r.Authorize(context.Background(), p, "bob", PermissionUpdate); err != nil {
		t.Fatalf("privileged role with grant should pass: %v", err)
	}
	if err := r.Authorize(context.Background(), p, "bob", PermissionDelete); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for missing grant, got %v", err)
	}
}

func TestAuthorizeAdminOnlyDeniesPlainRole(t *testing.T) {
	r, _ := newTestResolver(t, func(_ context.Context, _ int) ([]Permission, error) {
		return []Permission{{ID: 2, Name: PermissionRead}}, nil
	})
	p := baselinePrincipal("alice")
	if err := r.AuthorizeAdminOnly(context.Background(), p); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestEffectivePermissionsAreMemoized(t *testing.T) {
	r, store := newTestResolver(t, func(_ context.Context, _ int) ([]Permission, error) {
		return []Permission{{ID: 2, Name: PermissionRead}}, nil
	})

	for i := 0; i < 3; i++ {
		if _, err := r.EffectivePermissions(context.Background(), 1); err != nil {
			t.Fatalf("EffectivePermissions: %v", err)
		}
	}
	if store.calls != 1 {
		t.Fatalf("expected one store lookup, got %d", store.calls)
	}

	r.Invalidate(1)
	if _, err := r.EffectivePermissions(context.Background(), 1); err != nil {
		t.Fatalf("EffectivePermissions after invalidate: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected lookup after invalidation, got %d calls", store.calls)
	}
}
