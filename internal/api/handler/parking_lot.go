package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parkease/internal/domain"
	"parkease/internal/service"
)

// ParkingLotHandler is the admin surface over lots and spots.
type ParkingLotHandler struct {
	inventory *service.InventoryService
}

func NewParkingLotHandler(inventory *service.InventoryService) *ParkingLotHandler {
	return &ParkingLotHandler{inventory: inventory}
}

// POST /api/admin/parking-lots
func (h *ParkingLotHandler) CreateParkingLot(c *gin.Context) {
	var dto domain.CreateParkingLotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		bindError(c, err)
		return
	}

	lot, err := h.inventory.CreateLot(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// GET /api/admin/parking-lots
func (h *ParkingLotHandler) ListParkingLots(c *gin.Context) {
	lots, err := h.inventory.ListLots(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lots)
}

// GET /api/admin/parking-lots/search?q=
func (h *ParkingLotHandler) SearchParkingLots(c *gin.Context) {
	lots, err := h.inventory.SearchLots(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lots)
}

// GET /api/admin/parking-lots/:id
func (h *ParkingLotHandler) GetParkingLot(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lot, err := h.inventory.GetLot(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// PUT /api/admin/parking-lots/:id
func (h *ParkingLotHandler) UpdateParkingLot(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var dto domain.UpdateParkingLotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		bindError(c, err)
		return
	}

	lot, err := h.inventory.UpdateLot(c.Request.Context(), id, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// DELETE /api/admin/parking-lots/:id
func (h *ParkingLotHandler) DeleteParkingLot(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.inventory.DeleteLot(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Parking lot deleted successfully"})
}

// GET /api/admin/parking-lots/:id/spots
func (h *ParkingLotHandler) ListSpots(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	spots, err := h.inventory.ListSpots(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spots)
}

// GET /api/admin/parking-spots/:id/details
func (h *ParkingLotHandler) SpotDetails(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	details, err := h.inventory.SpotDetails(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// GET /api/admin/parking-spots/search?q=
func (h *ParkingLotHandler) SearchSpots(c *gin.Context) {
	spots, err := h.inventory.SearchSpots(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spots)
}
