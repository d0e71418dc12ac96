package authz

import "errors"

var (
	// ErrPrincipalNotFound means a token subject or target username no
	// longer resolves to a stored user. Mapped to a 404-style response,
	// never to an authorization denial.
	ErrPrincipalNotFound = errors.New("authz: principal not found")

	// ErrForbidden is an authenticated-but-disallowed decision.
	ErrForbidden = errors.New("authz: forbidden")

	ErrNotFound     = errors.New("authz: not found")
	ErrConflict     = errors.New("authz: already exists")
	ErrInvalidInput = errors.New("authz: invalid input")
)
