package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nattawut-dev/dropgate/internal/domain"
	"github.com/nattawut-dev/dropgate/internal/telemetry"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, Response{
		Success: false,
		Error: &ErrorData{
			Code:    code,
			Message: message,
			Details: details,
			TraceID: telemetry.GetTraceID(c.Request.Context()),
		},
	})
}

func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "BAD_REQUEST", message, "")
}

func respondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, "NOT_FOUND", message, "")
}

func respondUnauthorized(c *gin.Context, message string) {
	respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", message, "")
}

func respondInternalError(c *gin.Context, err error) {
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", err.Error())
}

// respondDomainError maps domain errors onto HTTP statuses.
func respondDomainError(c *gin.Context, err error) {
	telemetry.SetSpanError(c.Request.Context(), err)
	switch {
	case domain.IsNotFoundError(err):
		respondNotFound(c, err.Error())
	case domain.IsValidationError(err):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err)
	}
}
