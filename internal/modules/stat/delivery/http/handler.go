package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	stat "kaamkhoj.in/hireease/internal/modules/stat/service"
	"kaamkhoj.in/hireease/pkg/response"
)

type StatHandler struct {
	service stat.Service
}

func NewStatHandler(service stat.Service) *StatHandler {
	return &StatHandler{service: service}
}

func (h *StatHandler) Platform(c *gin.Context) {
	stats, err := h.service.Platform(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
