package httpapi

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"identra.org/internal/authz"
	"identra.org/internal/user"
)

type memUserStore struct {
	mu     sync.Mutex
	users  map[string]user.User
	nextID int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]user.User), nextID: 1}
}

func (s *memUserStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return user.ErrConflict
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return user.ErrConflict
		}
	}
	u.ID = s.nextID
	s.nextID++
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	s.users[u.Username] = *u
	return nil
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *memUserStore) List(_ context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memUserStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return user.ErrNotFound
	}
	delete(s.users, username)
	return nil
}

func (s *memUserStore) update(username string, fn func(*user.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return user.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	s.users[username] = u
	return nil
}

func (s *memUserStore) SetLoggedIn(_ context.Context, username string, loggedIn bool) error {
	return s.update(username, func(u *user.User) { u.LoggedIn = loggedIn })
}

func (s *memUserStore) SetRole(_ context.Context, username string, roleID int) error {
	return s.update(username, func(u *user.User) { u.RoleID = roleID })
}

func (s *memUserStore) SetTwoFactorSecret(_ context.Context, username, encryptedSeed string) error {
	return s.update(username, func(u *user.User) { u.TwoFactorSecret = encryptedSeed })
}

func (s *memUserStore) SetAuthenticated(_ context.Context, username string, authenticated bool) error {
	return s.update(username, func(u *user.User) { u.Authenticated = authenticated })
}

func (s *memUserStore) ResetTwoFactor(_ context.Context, username string) error {
	return s.update(username, func(u *user.User) {
		u.TwoFactorSecret = ""
		u.Authenticated = false
	})
}

type memCatalog struct {
	mu        sync.Mutex
	roles     map[int]authz.Role
	perms     map[int]authz.Permission
	grants    map[int]authz.Grant
	nextRole  int
	nextPerm  int
	nextGrant int
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		roles:     make(map[int]authz.Role),
		perms:     make(map[int]authz.Permission),
		grants:    make(map[int]authz.Grant),
		nextRole:  1,
		nextPerm:  1,
		nextGrant: 1,
	}
}

func (c *memCatalog) RoleByID(_ context.Context, id int) (authz.Role, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.roles[id]
	if !ok {
		return authz.Role{}, authz.ErrNotFound
	}
	return r, nil
}

func (c *memCatalog) RoleByName(_ context.Context, name string) (authz.Role, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return authz.Role{}, authz.ErrNotFound
}

func (c *memCatalog) Roles(_ context.Context) ([]authz.Role, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]authz.Role, 0, len(c.roles))
	for _, r := range c.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCatalog) CreateRole(_ context.Context, name string, kind authz.RoleKind) (authz.Role, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(name) == "" {
		return authz.Role{}, authz.ErrInvalidInput
	}
	for _, r := range c.roles {
		if r.Name == name {
			return authz.Role{}, authz.ErrConflict
		}
	}
	r := authz.Role{ID: c.nextRole, Name: name, Kind: kind}
	c.nextRole++
	c.roles[r.ID] = r
	return r, nil
}

func (c *memCatalog) DeleteRole(_ context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.roles[id]; !ok {
		return authz.ErrNotFound
	}
	delete(c.roles, id)
	return nil
}

func (c *memCatalog) Permissions(_ context.Context) ([]authz.Permission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]authz.Permission, 0, len(c.perms))
	for _, p := range c.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCatalog) CreatePermission(_ context.Context, name string) (authz.Permission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(name) == "" {
		return authz.Permission{}, authz.ErrInvalidInput
	}
	for _, p := range c.perms {
		if p.Name == name {
			return authz.Permission{}, authz.ErrConflict
		}
	}
	p := authz.Permission{ID: c.nextPerm, Name: name}
	c.nextPerm++
	c.perms[p.ID] = p
	return p, nil
}

func (c *memCatalog) DeletePermission(_ context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.perms[id]; !ok {
		return authz.ErrNotFound
	}
	delete(c.perms, id)
	return nil
}

func (c *memCatalog) PermissionsForRole(_ context.Context, roleID int) ([]authz.Permission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []authz.Permission
	for _, g := range c.grants {
		if g.RoleID == roleID {
			if p, ok := c.perms[g.PermissionID]; ok {
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCatalog) Grants(_ context.Context) ([]authz.Grant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]authz.Grant, 0, len(c.grants))
	for _, g := range c.grants {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCatalog) Grant(_ context.Context, roleID, permissionID int, description string) (authz.Grant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	role, ok := c.roles[roleID]
	if !ok {
		return authz.Grant{}, authz.ErrNotFound
	}
	perm, ok := c.perms[permissionID]
	if !ok {
		return authz.Grant{}, authz.ErrNotFound
	}
	for _, g := range c.grants {
		if g.RoleID == roleID && g.PermissionID == permissionID {
			return authz.Grant{}, authz.ErrConflict
		}
	}
	g := authz.Grant{
		ID:             c.nextGrant,
		RoleID:         roleID,
		PermissionID:   permissionID,
		RoleName:       role.Name,
		PermissionName: perm.Name,
		Description:    description,
	}
	c.nextGrant++
	c.grants[g.ID] = g
	return g, nil
}

func (c *memCatalog) RevokeGrant(_ context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.grants[id]; !ok {
		return authz.ErrNotFound
	}
	delete(c.grants, id)
	return nil
}
