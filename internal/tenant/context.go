package tenant

import (
	"context"
	"errors"
)

// Workspace member roles, mirrored from the identity service.
const (
	RoleAdmin      = "ADMIN"
	RoleSupervisor = "SUPERVISOR"
	RoleCaller     = "CALLER"
)

// Actor is the resolved identity performing an operation: the workspace it
// acts within, the member id, and its role. Identity resolution happens at
// the transport edge; core services receive an Actor explicitly and never
// read ambient authentication state.
type Actor struct {
	WorkspaceID string
	MemberID    string
	Role        string
}

// Valid reports whether the actor carries the minimum identity required to
// scope an operation.
func (a Actor) Valid() bool {
	return a.WorkspaceID != "" && a.MemberID != ""
}

// CanAdminister reports whether the actor may perform catalog-level
// administration (create/update/complete/delete call lists).
func (a Actor) CanAdminister() bool {
	return a.Role == RoleAdmin || a.Role == RoleSupervisor
}

type contextKey string

const (
	actorKey     contextKey = "actor"
	requestIDKey contextKey = "requestID"
)

// ErrNoActorInContext is returned when no resolved actor is found in context.
var ErrNoActorInContext = errors.New("no actor found in context")

// ErrNoRequestIDInContext is returned when no request ID is found in context.
var ErrNoRequestIDInContext = errors.New("no request ID found in context")

// WithActor stores the resolved actor on the context. Transport middleware
// uses this so logging can pick up identity fields; core services still take
// the Actor as an explicit argument.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext extracts the resolved actor from the context.
func ActorFromContext(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(actorKey).(Actor)
	if !ok || !actor.Valid() {
		return Actor{}, ErrNoActorInContext
	}
	return actor, nil
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		return "", ErrNoRequestIDInContext
	}
	return requestID, nil
}
