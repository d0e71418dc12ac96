package httpapi

import (
	"net/http"

	"identra.org/internal/obs"
)

// FaultKind classifies every way a gate can terminate a request. Kinds are
// mapped to status codes and client messages exactly once, in writeFault;
// gates themselves never touch the response writer.
type FaultKind int

const (
	FaultInternal FaultKind = iota
	FaultServiceUntrusted
	FaultUnauthenticated
	FaultInvalidToken
	FaultExpiredToken
	FaultRevokedToken
	FaultPrincipalNotFound
	FaultForbidden
	FaultTwoFactorRequired
)

// Fault is a terminal gate decision. Message is what the client sees;
// Internal carries the cause for server-side logging only.
type Fault struct {
	Kind     FaultKind
	Message  string
	Redirect string
	Internal error
}

func (k FaultKind) String() string {
	switch k {
	case FaultServiceUntrusted:
		return "service_untrusted"
	case FaultUnauthenticated:
		return "unauthenticated"
	case FaultInvalidToken:
		return "invalid_token"
	case FaultExpiredToken:
		return "expired_token"
	case FaultRevokedToken:
		return "revoked_token"
	case FaultPrincipalNotFound:
		return "principal_not_found"
	case FaultForbidden:
		return "forbidden"
	case FaultTwoFactorRequired:
		return "two_factor_required"
	default:
		return "internal"
	}
}

// status maps a kind to its HTTP status. Everything credential-related is
// 401 so clients cannot distinguish forged, expired, revoked or orphaned
// tokens; everything authenticated-but-disallowed is 403.
func (k FaultKind) status() int {
	switch k {
	case FaultUnauthenticated, FaultInvalidToken, FaultExpiredToken, FaultRevokedToken, FaultPrincipalNotFound:
		return http.StatusUnauthorized
	case FaultServiceUntrusted, FaultForbidden, FaultTwoFactorRequired:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// defaultMessage is the generic client-facing body for a kind when the
// gate did not set one.
func (k FaultKind) defaultMessage() string {
	switch k {
	case FaultUnauthenticated:
		return "missing credentials"
	case FaultInvalidToken, FaultExpiredToken, FaultRevokedToken, FaultPrincipalNotFound:
		return "invalid token"
	case FaultServiceUntrusted, FaultForbidden:
		return "ACCESS_FORBIDDEN"
	case FaultTwoFactorRequired:
		return "2FA_REQUIRED"
	default:
		return "internal error"
	}
}

func writeFault(w http.ResponseWriter, r *http.Request, gate string, f *Fault) {
	status := f.Kind.status()
	msg := f.Message
	if msg == "" {
		msg = f.Kind.defaultMessage()
	}
	if f.Internal != nil {
		obs.LogError("gate terminated request", map[string]any{
			"gate":       gate,
			"kind":       f.Kind.String(),
			"path":       r.URL.Path,
			"request_id": RequestIDFromContext(r.Context()),
			"cause":      f.Internal.Error(),
		})
	}
	payload := map[string]any{
		"error":  msg,
		"status": status,
	}
	if f.Redirect != "" {
		payload["redirect"] = f.Redirect
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, status, payload)
}
