package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	search "kaamkhoj.in/hireease/internal/modules/search/service"
	"kaamkhoj.in/hireease/pkg/response"
)

type SearchHandler struct {
	service search.SearchService
}

func NewSearchHandler(service search.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search serves GET /search?q=...&index=jobs|workers.
func (h *SearchHandler) Search(c *gin.Context) {
	if h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	index := c.DefaultQuery("index", search.IndexJobs)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	hits, total, err := h.service.Search(index, query, limit, offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hits":  hits,
		"total": total,
	})
}
