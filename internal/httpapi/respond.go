package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/script"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/usecase"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
)

// errorBody is the JSON error envelope. Fields carries field-addressed
// validation errors when the failure is an answer-schema rejection.
type errorBody struct {
	Error  string              `json:"error"`
	Fields []script.FieldError `json:"fields,omitempty"`
}

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var validationErr *usecase.AnswerValidationError
	if errors.As(err, &validationErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
			Error:  "validation failed",
			Fields: validationErr.Fields,
		})
		return
	}

	switch {
	case apperrors.IsValidationError(err) || apperrors.IsBadRequestError(err):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	case apperrors.IsUnauthorizedError(err):
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: err.Error()})
	case apperrors.IsForbiddenError(err):
		c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: err.Error()})
	case apperrors.IsNotFoundError(err):
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody{Error: err.Error()})
	case apperrors.IsConflictError(err) || apperrors.IsDuplicateError(err):
		c.AbortWithStatusJSON(http.StatusConflict, errorBody{Error: err.Error()})
	case apperrors.IsRetryable(err):
		logger.FromContext(c.Request.Context()).Warn("Backend temporarily unavailable",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Error: "temporarily unavailable, retry the request"})
	default:
		logger.FromContext(c.Request.Context()).Error("Unhandled service error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// listEnvelope wraps paginated collection responses.
type listEnvelope struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}
