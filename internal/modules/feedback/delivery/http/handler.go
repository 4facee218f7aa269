package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	fbDto "kaamkhoj.in/hireease/internal/modules/feedback/dto"
	feedback "kaamkhoj.in/hireease/internal/modules/feedback/service"
	"kaamkhoj.in/hireease/pkg/response"
	"kaamkhoj.in/hireease/pkg/validator"
)

type FeedbackHandler struct {
	service feedback.Service
}

func NewFeedbackHandler(service feedback.Service) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req fbDto.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *FeedbackHandler) ListByWorker(c *gin.Context) {
	workerID, err := uuid.Parse(c.Param("worker_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := h.service.ListByWorker(c.Request.Context(), workerID, limit, offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
