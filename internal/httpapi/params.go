package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// eventIDParam parses the :id path parameter. On failure it writes the
// error response and returns ok=false.
func eventIDParam(c *gin.Context) (int64, bool) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || eventID <= 0 {
		respondBadRequest(c, "invalid event id")
		return 0, false
	}
	return eventID, true
}

// limitQuery parses an optional ?limit= query parameter, returning 0 when
// absent so the caller applies its default.
func limitQuery(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		respondBadRequest(c, "invalid limit")
		return 0, false
	}
	return limit, true
}
