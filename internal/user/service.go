package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"identra.org/internal/audit"
	"identra.org/internal/authz"
	"identra.org/internal/revoke"
	"identra.org/internal/token"
)

// Service implements account flows on top of the Store, issuing tokens via
// the codec and enforcing fine-grained authorization through the resolver.
// Handlers know the target resource owner, so the per-operation Authorize
// call happens here rather than in the gate pipeline.
type Service struct {
	store    Store
	catalog  authz.CatalogStore
	resolver *authz.Resolver
	codec    *token.Codec
	registry revoke.Registry
}

// NewService wires the account service.
func NewService(store Store, catalog authz.CatalogStore, resolver *authz.Resolver, codec *token.Codec, registry revoke.Registry) (*Service, error) {
	if store == nil || catalog == nil || resolver == nil || codec == nil || registry == nil {
		return nil, errors.New("user: all collaborators are required")
	}
	return &Service{
		store:    store,
		catalog:  catalog,
		resolver: resolver,
		codec:    codec,
		registry: registry,
	}, nil
}

// ResolvePrincipal rebuilds the request principal from verified token
// claims. The token subject must still resolve to a stored user and the
// role claim to a catalog role.
func (s *Service) ResolvePrincipal(ctx context.Context, claims *token.Claims) (authz.Principal, error) {
	if _, err := s.store.FindByUsername(ctx, claims.Subject); err != nil {
		if errors.Is(err, ErrNotFound) {
			return authz.Principal{}, authz.ErrPrincipalNotFound
		}
		return authz.Principal{}, err
	}
	role, err := s.catalog.RoleByName(ctx, claims.Role)
	if err != nil {
		if errors.Is(err, authz.ErrNotFound) {
			return authz.Principal{}, authz.ErrPrincipalNotFound
		}
		return authz.Principal{}, err
	}
	return authz.Principal{
		Username:  claims.Subject,
		RoleID:    role.ID,
		RoleName:  role.Name,
		RoleKind:  role.Kind,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Login authenticates by username or email and issues a token. Every
// credential failure collapses to ErrBadCredentials.
func (s *Service) Login(ctx context.Context, identifier, password string) (string, User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return "", User{}, ErrBadCredentials
	}

	var (
		u   User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.store.FindByEmail(ctx, strings.ToLower(identifier))
	} else {
		u, err = s.store.FindByUsername(ctx, identifier)
	}
	if err != nil {
		return "", User{}, ErrBadCredentials
	}
	if !u.Enabled {
		return "", User{}, ErrBadCredentials
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return "", User{}, ErrBadCredentials
	}

	role, err := s.catalog.RoleByID(ctx, u.RoleID)
	if err != nil {
		return "", User{}, err
	}
	signed, err := s.codec.Issue(u.Username, role.Name)
	if err != nil {
		return "", User{}, err
	}
	if err := s.store.SetLoggedIn(ctx, u.Username, true); err != nil {
		return "", User{}, err
	}
	u.LoggedIn = true

	_ = audit.Log(ctx, audit.Event{
		Action:      "user.login",
		Entity:      "app_user",
		EntityID:    strconv.Itoa(u.ID),
		Description: fmt.Sprintf("user %s logged in", u.Username),
	})
	return signed, u, nil
}

// Register creates an account with the baseline USER role and issues a
// first token.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" {
		return "", User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return "", User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if len(password) < 8 {
		return "", User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", User{}, err
	}
	role, err := s.catalog.RoleByName(ctx, authz.RoleUser)
	if err != nil {
		return "", User{}, err
	}

	u := User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RoleID:       role.ID,
		Enabled:      true,
		LoggedIn:     true,
	}
	if err := s.store.Create(ctx, &u); err != nil {
		return "", User{}, err
	}

	signed, err := s.codec.Issue(u.Username, role.Name)
	if err != nil {
		return "", User{}, err
	}

	_ = audit.Log(ctx, audit.Event{
		Action:      "user.register",
		Entity:      "app_user",
		EntityID:    strconv.Itoa(u.ID),
		Description: fmt.Sprintf("user %s registered", u.Username),
	})
	return signed, u, nil
}

// Logout requires UPDATE on the target account, marks it logged out and
// revokes the presented token for the remainder of its lifetime.
func (s *Service) Logout(ctx context.Context, principal authz.Principal, rawToken, username string) error {
	if err := s.resolver.Authorize(ctx, principal, username, authz.PermissionUpdate); err != nil {
		return err
	}
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return authz.ErrPrincipalNotFound
		}
		return err
	}
	if err := s.store.SetLoggedIn(ctx, username, false); err != nil {
		return err
	}
	s.registry.Revoke(rawToken, principal.ExpiresAt)

	_ = audit.Log(ctx, audit.Event{
		Action:      "user.logout",
		Entity:      "app_user",
		EntityID:    strconv.Itoa(u.ID),
		Description: fmt.Sprintf("user %s logged out", username),
	})
	return nil
}

// Get returns one account, requiring READ with the ownership rule.
func (s *Service) Get(ctx context.Context, principal authz.Principal, username string) (User, error) {
	if err := s.resolver.Authorize(ctx, principal, username, authz.PermissionRead); err != nil {
		return User{}, err
	}
	u, err := s.store.FindByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return User{}, authz.ErrPrincipalNotFound
	}
	return u, err
}

// List returns all accounts. The route is admin-gated by path pattern, so
// no per-resource check happens here.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

// Delete removes an account, requiring DELETE with the ownership rule.
func (s *Service) Delete(ctx context.Context, principal authz.Principal, username string) error {
	if err := s.resolver.Authorize(ctx, principal, username, authz.PermissionDelete); err != nil {
		return err
	}
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return authz.ErrPrincipalNotFound
		}
		return err
	}
	if err := s.store.Delete(ctx, username); err != nil {
		return err
	}
	_ = audit.Log(ctx, audit.Event{
		Action:      "user.delete",
		Entity:      "app_user",
		EntityID:    strconv.Itoa(u.ID),
		Description: fmt.Sprintf("user %s deleted", username),
	})
	return nil
}

// ChangeRole reassigns an account to a catalog role. Admin-only: the route
// pattern gates it, and the service checks again because the operation has
// no ownership semantics to fall back on.
func (s *Service) ChangeRole(ctx context.Context, principal authz.Principal, username, roleName string) error {
	if err := s.resolver.AuthorizeAdminOnly(ctx, principal); err != nil {
		return err
	}
	role, err := s.catalog.RoleByName(ctx, strings.TrimSpace(roleName))
	if err != nil {
		return err
	}
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return authz.ErrPrincipalNotFound
		}
		return err
	}
	if err := s.store.SetRole(ctx, username, role.ID); err != nil {
		return err
	}
	_ = audit.Log(ctx, audit.Event{
		Action:      "user.role.change",
		Entity:      "app_user",
		EntityID:    strconv.Itoa(u.ID),
		Description: fmt.Sprintf("user %s moved to role %s", username, role.Name),
	})
	return nil
}

// SetTwoFactorSecret stores a freshly enrolled encrypted seed and returns
// the account so the caller can deliver the first code out of band.
// Enrollment resets the completion flag: the user must verify again.
func (s *Service) SetTwoFactorSecret(ctx context.Context, username, encryptedSeed string) (User, error) {
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, authz.ErrPrincipalNotFound
		}
		return User{}, err
	}
	if err := s.store.SetTwoFactorSecret(ctx, username, encryptedSeed); err != nil {
		return User{}, err
	}
	if err := s.store.SetAuthenticated(ctx, username, false); err != nil {
		return User{}, err
	}
	u.TwoFactorSecret = encryptedSeed
	u.Authenticated = false

	_ = audit.Log(ctx, audit.Event{
		Action:      "user.twofactor.enroll",
		Entity:      "app_user",
		EntityID:    strconv.Itoa(u.ID),
		Description: fmt.Sprintf("user %s enrolled a two-factor secret", username),
	})
	return u, nil
}

// ConfirmTwoFactor marks the second factor complete for the session.
func (s *Service) ConfirmTwoFactor(ctx context.Context, username string) error {
	if err := s.store.SetAuthenticated(ctx, username, true); err != nil {
		return err
	}
	_ = audit.Log(ctx, audit.Event{
		Action:      "user.twofactor.verify",
		Entity:      "app_user",
		Description: fmt.Sprintf("user %s completed two-factor verification", username),
	})
	return nil
}

// ResetTwoFactor clears the stored seed and the completion flag, forcing
// re-enrollment.
func (s *Service) ResetTwoFactor(ctx context.Context, username string) error {
	if err := s.store.ResetTwoFactor(ctx, username); err != nil {
		return err
	}
	_ = audit.Log(ctx, audit.Event{
		Action:      "user.twofactor.reset",
		Entity:      "app_user",
		Description: fmt.Sprintf("user %s reset two-factor enrollment", username),
	})
	return nil
}
