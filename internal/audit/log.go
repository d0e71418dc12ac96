// Package audit emits structured audit events for account and catalog
// mutations. Delivery beyond the process boundary (the log microservice)
// is an external collaborator; this package only shapes and hands off the
// event.
package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"identra.org/internal/authz"
	"identra.org/internal/ids"
	"identra.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Event is one audit record: what action touched which entity, by whom.
type Event struct {
	Action      string
	Entity      string
	EntityID    string
	Description string
	Fields      map[string]any
}

// Log writes an audit entry enriched with request and principal context.
func Log(ctx context.Context, ev Event) error {
	ev.Action = strings.TrimSpace(ev.Action)
	if ev.Action == "" {
		return errors.New("audit: action is required")
	}
	entry := map[string]any{
		"id":     ids.New(),
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		"type":   "audit",
		"action": ev.Action,
	}
	if ev.Entity != "" {
		entry["entity"] = ev.Entity
	}
	if ev.EntityID != "" {
		entry["entity_id"] = ev.EntityID
	}
	if ev.Description != "" {
		entry["description"] = ev.Description
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if principal, ok := authz.PrincipalFromContext(ctx); ok {
		entry["actor"] = principal.Username
		entry["actor_role"] = principal.RoleName
	}
	if len(ev.Fields) > 0 {
		fields := make(map[string]any, len(ev.Fields))
		for k, v := range ev.Fields {
			fields[k] = v
		}
		entry["fields"] = fields
	}
	obs.LogRequest(entry)
	return nil
}
