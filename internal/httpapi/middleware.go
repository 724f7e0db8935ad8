package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/tenant"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
)

// Identity headers set by the gateway after authentication. The service
// never validates tokens itself; it trusts the resolved triple.
const (
	HeaderWorkspaceID = "X-Workspace-ID"
	HeaderMemberID    = "X-Member-ID"
	HeaderMemberRole  = "X-Member-Role"
	HeaderRequestID   = "X-Request-ID"
)

// RequestIDMiddleware assigns a request id and stores it on the context so
// every log line of the request carries it.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := tenant.WithRequestID(c.Request.Context(), requestID)
		ctx = logger.WithLogger(ctx, logger.Log)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}

// ActorMiddleware resolves the acting identity from gateway headers and
// rejects requests carrying none. The resolved actor rides the request
// context; handlers pass it to the service explicitly.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := tenant.Actor{
			WorkspaceID: c.GetHeader(HeaderWorkspaceID),
			MemberID:    c.GetHeader(HeaderMemberID),
			Role:        c.GetHeader(HeaderMemberRole),
		}
		if !actor.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Error: "missing workspace identity headers",
			})
			return
		}

		c.Request = c.Request.WithContext(tenant.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// actorFrom pulls the resolved actor back out for handler use.
func actorFrom(c *gin.Context) tenant.Actor {
	actor, _ := tenant.ActorFromContext(c.Request.Context())
	return actor
}
