package httpapi

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"identra.org/internal/authz"
	"identra.org/internal/config"
	"identra.org/internal/notify"
	"identra.org/internal/obs"
	"identra.org/internal/revoke"
	"identra.org/internal/token"
	"identra.org/internal/twofactor"
	"identra.org/internal/user"
)

// API owns the HTTP surface: routing, the gate pipeline and the ambient
// middleware. Domain decisions live in the services it delegates to.
type API struct {
	cfg       *config.Config
	users     *user.Service
	userStore user.Store
	catalog   authz.CatalogStore
	resolver  *authz.Resolver
	codec     *token.Codec
	registry  revoke.Registry
	challenge *twofactor.Challenge
	notifier  notify.Notifier
	ready     func(ctx context.Context) error
}

type Options struct {
	Config    *config.Config
	Users     *user.Service
	UserStore user.Store
	Catalog   authz.CatalogStore
	Resolver  *authz.Resolver
	Codec     *token.Codec
	Registry  revoke.Registry
	Challenge *twofactor.Challenge
	Notifier  notify.Notifier

	// Ready reports whether backing stores are reachable. Nil means
	// always ready.
	Ready func(ctx context.Context) error
}

func New(opts Options) (*API, error) {
	if opts.Config == nil || opts.Users == nil || opts.UserStore == nil ||
		opts.Catalog == nil || opts.Resolver == nil || opts.Codec == nil ||
		opts.Registry == nil || opts.Challenge == nil {
		return nil, errors.New("httpapi: missing required collaborator")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.LogNotifier{}
	}
	return &API{
		cfg:       opts.Config,
		users:     opts.Users,
		userStore: opts.UserStore,
		catalog:   opts.Catalog,
		resolver:  opts.Resolver,
		codec:     opts.Codec,
		registry:  opts.Registry,
		challenge: opts.Challenge,
		notifier:  opts.Notifier,
		ready:     opts.Ready,
	}, nil
}

// Handler assembles the full stack. Order matters: requests are identified
// and logged first, then rate limited, then pass the four admission gates
// before any route handler runs.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.Handle("/metrics", obs.Handler())

	mux.HandleFunc("/auth/login", a.handleLogin)
	mux.HandleFunc("/auth/register", a.handleRegister)

	mux.HandleFunc("/2fa/generate", a.handleTwoFactorGenerate)
	mux.HandleFunc("/2fa/verify", a.handleTwoFactorVerify)
	mux.HandleFunc("/2fa/reset", a.handleTwoFactorReset)

	mux.HandleFunc("/api/user/", a.handleUsers)
	mux.HandleFunc("/api/role-permission/", a.handleCatalog)

	chain := NewChain(
		NewServiceTrustGate(a.cfg.InternalKey),
		NewAuthenticationGate(a.codec, a.registry, a.users),
		NewTwoFactorGate(a.userStore, a.cfg.TwoFactorExemptPatterns, a.cfg.TwoFactorRedirectURL),
		NewAuthorizationGate(a.resolver, a.cfg.AdminPathPatterns),
	)

	var h http.Handler = chain.Wrap(mux)
	h = MaxBodyBytes(1<<20, h)
	h = RateLimit(rate.Limit(50), 100, h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		if err := a.ready(r.Context()); err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// serviceError translates domain sentinels to HTTP once, so handlers stay
// uniform. Unknown errors are logged with the request id and surface as a
// bare 500.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrBadCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, authz.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "ACCESS_FORBIDDEN")
	case errors.Is(err, authz.ErrPrincipalNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, authz.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, user.ErrConflict), errors.Is(err, authz.ErrConflict):
		writeError(w, r, http.StatusConflict, "already exists")
	case errors.Is(err, user.ErrInvalidInput), errors.Is(err, authz.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		obs.LogError("request failed", map[string]any{
			"path":       r.URL.Path,
			"request_id": RequestIDFromContext(r.Context()),
			"cause":      err.Error(),
		})
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// requirePrincipal fetches the authenticated principal or writes a 401.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (authz.Principal, bool) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing credentials")
	}
	return p, ok
}
