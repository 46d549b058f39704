package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parkease/internal/api/middleware"
	"parkease/internal/domain"
	"parkease/internal/service"
)

type LPRHandler struct {
	lprService *service.LPRService
}

func NewLPRHandler(lprService *service.LPRService) *LPRHandler {
	return &LPRHandler{lprService: lprService}
}

// POST /api/parking/detect-plate
func (h *LPRHandler) DetectPlate(c *gin.Context) {
	var req domain.PlateDetectionRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.lprService.DetectAndPark(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
