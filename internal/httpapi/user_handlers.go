package httpapi

import (
	"net/http"
	"strings"

	"identra.org/internal/authz"
)

// handleUsers dispatches /api/user/<action>[/<username>]. The mux gives us
// the whole subtree; splitting here keeps the action names in one place.
func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/user/")
	action, target, _ := strings.Cut(rest, "/")
	target = strings.TrimSuffix(target, "/")

	switch action {
	case "get-all":
		a.handleUserList(w, r)
	case "get":
		a.handleUserGet(w, r, target)
	case "delete":
		a.handleUserDelete(w, r, target)
	case "changeRole":
		a.handleUserChangeRole(w, r, target)
	case "logout":
		a.handleUserLogout(w, r, target)
	default:
		writeError(w, r, http.StatusNotFound, "not found")
	}
}

func (a *API) handleUserList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	users, err := a.users.List(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) handleUserGet(w http.ResponseWriter, r *http.Request, target string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if target == "" {
		writeError(w, r, http.StatusBadRequest, "username is required")
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	u, err := a.users.Get(r.Context(), principal, target)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleUserDelete(w http.ResponseWriter, r *http.Request, target string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if target == "" {
		writeError(w, r, http.StatusBadRequest, "username is required")
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := a.users.Delete(r.Context(), principal, target); err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": target})
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) handleUserChangeRole(w http.ResponseWriter, r *http.Request, target string) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPut, http.MethodPost)
		return
	}
	if target == "" {
		writeError(w, r, http.StatusBadRequest, "username is required")
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req changeRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.users.ChangeRole(r.Context(), principal, target, req.Role); err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": target, "role": req.Role})
}

func (a *API) handleUserLogout(w http.ResponseWriter, r *http.Request, target string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if target == "" {
		writeError(w, r, http.StatusBadRequest, "username is required")
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	raw, _ := authz.TokenFromContext(r.Context())
	if err := a.users.Logout(r.Context(), principal, raw, target); err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"loggedOut": target})
}
