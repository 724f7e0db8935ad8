// Package httpapi is the REST surface of the outreach call service. Routes
// stay free of business logic; handlers bind, delegate to the usecase layer,
// and translate its error taxonomy to HTTP statuses.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/usecase"
)

// NewRouter builds the gin engine with identity middleware and all v1 routes.
func NewRouter(service *usecase.CallService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.Use(ActorMiddleware())

	h := NewHandler(service)

	callLists := v1.Group("/call-lists")
	{
		callLists.POST("", h.CreateCallList)
		callLists.GET("", h.ListCallLists)
		callLists.GET("/:id", h.GetCallList)
		callLists.PATCH("/:id", h.UpdateCallList)
		callLists.DELETE("/:id", h.DeleteCallList)

		callLists.POST("/:id/items", h.AddItems)
		callLists.GET("/:id/items", h.ListItems)
		callLists.POST("/:id/items/assign", h.AssignItems)
		callLists.POST("/:id/items/unassign", h.UnassignItems)
	}

	items := v1.Group("/call-list-items")
	{
		items.GET("/:id", h.GetItem)
		items.PATCH("/:id", h.UpdateItem)
	}

	callLogs := v1.Group("/call-logs")
	{
		callLogs.POST("", h.CompleteCall)
		callLogs.GET("", h.ListCallLogs)
		callLogs.GET("/:id", h.GetCallLog)
		callLogs.PATCH("/:id", h.UpdateCallLog)
	}

	followUps := v1.Group("/followups")
	{
		followUps.POST("", h.CreateFollowUp)
		followUps.GET("", h.ListFollowUps)
		followUps.GET("/:id", h.GetFollowUp)
		followUps.GET("/:id/call-context", h.GetCallContext)
		followUps.POST("/:id/call-logs", h.CompleteFollowUpCall)
		followUps.POST("/:id/cancel", h.CancelFollowUp)
	}

	return r
}
