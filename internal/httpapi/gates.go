package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"identra.org/internal/authz"
	"identra.org/internal/obs"
	"identra.org/internal/revoke"
	"identra.org/internal/token"
	"identra.org/internal/user"
)

// Gate is one stage of the request admission pipeline. A gate either lets
// the request through, possibly with an enriched context, or terminates it
// with a Fault. Gates never write to the ResponseWriter themselves.
type Gate interface {
	Name() string
	Handle(r *http.Request) (*http.Request, *Fault)
}

// Chain runs gates in order in front of a handler. The first fault wins;
// later gates never observe a request an earlier gate rejected.
type Chain struct {
	gates []Gate
}

func NewChain(gates ...Gate) *Chain {
	return &Chain{gates: gates}
}

func (c *Chain) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, g := range c.gates {
			out, fault := g.Handle(r)
			if fault != nil {
				obs.GateDecision(g.Name(), "deny")
				writeFault(w, r, g.Name(), fault)
				return
			}
			obs.GateDecision(g.Name(), "allow")
			r = out
		}
		next.ServeHTTP(w, r)
	})
}

// ServiceTrustGate admits only traffic that arrived through the gateway,
// identified by a shared header secret. OAuth callback paths are exempt
// because the provider calls them directly.
type ServiceTrustGate struct {
	key    string
	exempt []string
}

func NewServiceTrustGate(key string) *ServiceTrustGate {
	return &ServiceTrustGate{
		key:    key,
		exempt: []string{"/oauth2/**", "/healthz", "/readyz", "/metrics"},
	}
}

func (g *ServiceTrustGate) Name() string { return "service_trust" }

func (g *ServiceTrustGate) Handle(r *http.Request) (*http.Request, *Fault) {
	if g.key == "" {
		return r, nil
	}
	if MatchAny(g.exempt, r.URL.Path) {
		return r, nil
	}
	got := r.Header.Get("X-Internal-Key")
	if subtle.ConstantTimeCompare([]byte(got), []byte(g.key)) != 1 {
		return nil, &Fault{Kind: FaultServiceUntrusted, Internal: errors.New("missing or wrong internal key")}
	}
	return r, nil
}

// PrincipalResolver turns verified token claims into a live principal.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, claims *token.Claims) (authz.Principal, error)
}

// AuthenticationGate verifies the bearer token if one is present and binds
// the resulting principal plus the raw token to the request context.
// Requests without credentials pass through unauthenticated; whether that
// is acceptable is a later gate's call.
type AuthenticationGate struct {
	codec      *token.Codec
	registry   revoke.Registry
	principals PrincipalResolver
}

func NewAuthenticationGate(codec *token.Codec, registry revoke.Registry, principals PrincipalResolver) *AuthenticationGate {
	return &AuthenticationGate{codec: codec, registry: registry, principals: principals}
}

func (g *AuthenticationGate) Name() string { return "authentication" }

func (g *AuthenticationGate) Handle(r *http.Request) (*http.Request, *Fault) {
	raw, ok := bearerToken(r)
	if !ok {
		return r, nil
	}
	claims, err := g.codec.ParseAndVerify(raw)
	if err != nil {
		return nil, &Fault{Kind: FaultInvalidToken, Internal: err}
	}
	if err := g.codec.CheckExpiry(claims); err != nil {
		return nil, &Fault{Kind: FaultExpiredToken, Internal: err}
	}
	if g.registry.IsRevoked(raw) {
		return nil, &Fault{Kind: FaultRevokedToken, Internal: errors.New("token is revoked")}
	}
	principal, err := g.principals.ResolvePrincipal(r.Context(), claims)
	if err != nil {
		if errors.Is(err, authz.ErrPrincipalNotFound) {
			return nil, &Fault{Kind: FaultPrincipalNotFound, Internal: err}
		}
		return nil, &Fault{Kind: FaultInternal, Internal: err}
	}
	ctx := authz.ContextWithPrincipal(r.Context(), principal)
	ctx = authz.ContextWithToken(ctx, raw)
	return r.WithContext(ctx), nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// TwoFactorGate blocks authenticated principals who have not completed
// two-factor enrollment and verification, except on the exempt paths that
// exist precisely so they can complete it.
type TwoFactorGate struct {
	users    user.Store
	exempt   []string
	redirect string
}

func NewTwoFactorGate(users user.Store, exempt []string, redirect string) *TwoFactorGate {
	// Probes, scrapes and provider callbacks never carry user credentials;
	// they stay reachable regardless of the configured pattern list.
	builtin := []string{"/healthz", "/readyz", "/metrics", "/oauth2/**"}
	return &TwoFactorGate{
		users:    users,
		exempt:   append(builtin, exempt...),
		redirect: redirect,
	}
}

func (g *TwoFactorGate) Name() string { return "two_factor" }

func (g *TwoFactorGate) Handle(r *http.Request) (*http.Request, *Fault) {
	if MatchAny(g.exempt, r.URL.Path) {
		return r, nil
	}
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		return nil, &Fault{Kind: FaultUnauthenticated, Internal: errors.New("protected path without credentials")}
	}
	u, err := g.users.FindByUsername(r.Context(), principal.Username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, &Fault{Kind: FaultPrincipalNotFound, Internal: err}
		}
		return nil, &Fault{Kind: FaultInternal, Internal: err}
	}
	if !u.Enabled || !u.LoggedIn {
		return nil, &Fault{Kind: FaultForbidden, Internal: errors.New("account disabled or logged out")}
	}
	if !u.HasTwoFactorAuth() {
		return nil, &Fault{
			Kind:     FaultTwoFactorRequired,
			Redirect: g.redirect,
			Internal: errors.New("two-factor not enrolled or not verified"),
		}
	}
	return r, nil
}

// AuthorizationGate restricts the configured admin path set to principals
// the resolver recognizes as administrative. All other paths fall through
// to per-handler authorization.
type AuthorizationGate struct {
	resolver      *authz.Resolver
	adminPatterns []string
}

func NewAuthorizationGate(resolver *authz.Resolver, adminPatterns []string) *AuthorizationGate {
	return &AuthorizationGate{resolver: resolver, adminPatterns: adminPatterns}
}

func (g *AuthorizationGate) Name() string { return "authorization" }

func (g *AuthorizationGate) Handle(r *http.Request) (*http.Request, *Fault) {
	if !MatchAny(g.adminPatterns, r.URL.Path) {
		return r, nil
	}
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		return nil, &Fault{Kind: FaultUnauthenticated, Internal: errors.New("admin path without credentials")}
	}
	if err := g.resolver.AuthorizeAdminOnly(r.Context(), principal); err != nil {
		if errors.Is(err, authz.ErrForbidden) {
			return nil, &Fault{Kind: FaultForbidden, Internal: err}
		}
		return nil, &Fault{Kind: FaultInternal, Internal: err}
	}
	return r, nil
}
