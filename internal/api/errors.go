package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"task-tracker/internal/service"
)

const errInvalidRequestBody = "invalid request body"

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

// fail maps a service error onto a response. Anything that is neither a
// validation problem nor a missing task is treated as a storage failure.
func (s *Server) fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		abort(c, newBadRequestError(verr.Message))
	case errors.Is(err, service.ErrNotFound):
		abort(c, newNotFoundError("task not found"))
	default:
		s.log.Errorw("request failed",
			"error", err,
			"requestID", c.GetString(requestIDKey),
			"path", c.Request.URL.Path,
		)
		abort(c, newStatusTextError(http.StatusInternalServerError))
	}
}
