package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultPageSize = 6

// PaginatedResponse wraps list results the way the frontend paginator
// expects them.
type PaginatedResponse struct {
	Count   int64       `json:"count"`
	Results interface{} `json:"results"`
}

// pageParams reads limit/page query parameters and converts them to
// limit/offset.
func pageParams(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	page := 1
	if raw := c.Query("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	return limit, (page - 1) * limit
}
