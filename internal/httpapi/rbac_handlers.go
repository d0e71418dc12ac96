package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"identra.org/internal/authz"
)

// handleCatalog serves the role-permission catalog under
// /api/role-permission/. The whole subtree sits behind the admin path gate,
// so handlers here only validate input and keep the resolver cache honest.
func (a *API) handleCatalog(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/role-permission/")
	collection, idRaw, _ := strings.Cut(rest, "/")
	idRaw = strings.TrimSuffix(idRaw, "/")

	switch collection {
	case "roles":
		a.handleRoles(w, r, idRaw)
	case "permissions":
		a.handlePermissions(w, r, idRaw)
	case "grants":
		a.handleGrants(w, r, idRaw)
	default:
		writeError(w, r, http.StatusNotFound, "not found")
	}
}

func parseID(w http.ResponseWriter, r *http.Request, raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

type createRoleRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request, idRaw string) {
	switch {
	case idRaw == "" && r.Method == http.MethodGet:
		roles, err := a.catalog.Roles(r.Context())
		if err != nil {
			serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})

	case idRaw == "" && r.Method == http.MethodPost:
		var req createRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		kind, err := authz.ParseRoleKind(req.Kind)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.catalog.CreateRole(r.Context(), strings.TrimSpace(req.Name), kind)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, role)

	case idRaw != "" && r.Method == http.MethodDelete:
		id, ok := parseID(w, r, idRaw)
		if !ok {
			return
		}
		if err := a.catalog.DeleteRole(r.Context(), id); err != nil {
			serviceError(w, r, err)
			return
		}
		a.resolver.Invalidate(id)
		writeJSON(w, http.StatusOK, map[string]int{"deleted": id})

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

type createPermissionRequest struct {
	Name string `json:"name"`
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request, idRaw string) {
	switch {
	case idRaw == "" && r.Method == http.MethodGet:
		perms, err := a.catalog.Permissions(r.Context())
		if err != nil {
			serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"permissions": perms})

	case idRaw == "" && r.Method == http.MethodPost:
		var req createPermissionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		perm, err := a.catalog.CreatePermission(r.Context(), strings.TrimSpace(req.Name))
		if err != nil {
			serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, perm)

	case idRaw != "" && r.Method == http.MethodDelete:
		id, ok := parseID(w, r, idRaw)
		if !ok {
			return
		}
		if err := a.catalog.DeletePermission(r.Context(), id); err != nil {
			serviceError(w, r, err)
			return
		}
		// A permission row can be referenced by any role.
		a.resolver.InvalidateAll()
		writeJSON(w, http.StatusOK, map[string]int{"deleted": id})

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

type createGrantRequest struct {
	RoleID       int    `json:"role_id"`
	PermissionID int    `json:"permission_id"`
	Description  string `json:"description"`
}

func (a *API) handleGrants(w http.ResponseWriter, r *http.Request, idRaw string) {
	switch {
	case idRaw == "" && r.Method == http.MethodGet:
		grants, err := a.catalog.Grants(r.Context())
		if err != nil {
			serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"grants": grants})

	case idRaw == "" && r.Method == http.MethodPost:
		var req createGrantRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		grant, err := a.catalog.Grant(r.Context(), req.RoleID, req.PermissionID, req.Description)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		a.resolver.Invalidate(req.RoleID)
		writeJSON(w, http.StatusCreated, grant)

	case idRaw != "" && r.Method == http.MethodDelete:
		id, ok := parseID(w, r, idRaw)
		if !ok {
			return
		}
		if err := a.catalog.RevokeGrant(r.Context(), id); err != nil {
			serviceError(w, r, err)
			return
		}
		// The revoked row's role is unknown here; flush everything.
		a.resolver.InvalidateAll()
		writeJSON(w, http.StatusOK, map[string]int{"revoked": id})

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}
