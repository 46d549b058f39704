package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"parkease/internal/api/middleware"
	"parkease/internal/domain"
	"parkease/internal/service"
)

// ParkingHandler serves the signed-in user's parking operations.
type ParkingHandler struct {
	occupancy *service.OccupancyService
	inventory *service.InventoryService
	vehicles  *service.VehicleService
	reports   *service.ReportService
	exports   *service.ExportService
}

func NewParkingHandler(
	occupancy *service.OccupancyService,
	inventory *service.InventoryService,
	vehicles *service.VehicleService,
	reports *service.ReportService,
	exports *service.ExportService,
) *ParkingHandler {
	return &ParkingHandler{
		occupancy: occupancy,
		inventory: inventory,
		vehicles:  vehicles,
		reports:   reports,
		exports:   exports,
	}
}

// The park, auto-park and unpark bodies carry the result fields at the top level.
type parkResponse struct {
	Message string `json:"message"`
	*domain.ParkResult
}

type unparkResponse struct {
	Message string `json:"message"`
	*domain.UnparkResult
}

// POST /api/parking/park
func (h *ParkingHandler) Park(c *gin.Context) {
	var dto domain.ParkRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidParkRequest.Message})
		return
	}

	result, err := h.occupancy.Park(c.Request.Context(), middleware.UserID(c), dto.VehicleNo, dto.SpotID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, parkResponse{Message: "Vehicle parked successfully", ParkResult: result})
}

// POST /api/parking/auto-park
func (h *ParkingHandler) AutoPark(c *gin.Context) {
	var dto domain.AutoParkRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vehicle ID and lot ID are required"})
		return
	}

	result, err := h.occupancy.AutoPark(c.Request.Context(), middleware.UserID(c), dto.VehicleID, dto.LotID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, parkResponse{Message: "Vehicle auto-parked successfully", ParkResult: result})
}

// POST /api/parking/unpark
func (h *ParkingHandler) Unpark(c *gin.Context) {
	var dto domain.UnparkRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidVehicleID.Message})
		return
	}

	result, err := h.occupancy.Unpark(c.Request.Context(), middleware.UserID(c), dto.VehicleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unparkResponse{Message: "Vehicle unparked successfully", UnparkResult: result})
}

// GET /api/parking/lots
func (h *ParkingHandler) ListLots(c *gin.Context) {
	lots, err := h.inventory.ListLots(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lots)
}

// GET /api/parking/lots/:id/spots
func (h *ParkingHandler) ListSpots(c *gin.Context) {
	lotID, ok := pathID(c, "id")
	if !ok {
		return
	}
	spots, err := h.inventory.ListSpots(c.Request.Context(), lotID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spots)
}

// GET /api/parking/vehicles
func (h *ParkingHandler) ListVehicles(c *gin.Context) {
	vehicles, err := h.vehicles.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

// POST /api/parking/vehicles
func (h *ParkingHandler) RegisterVehicle(c *gin.Context) {
	var dto domain.RegisterVehicleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidPlate.Message})
		return
	}

	vehicle, err := h.vehicles.Register(c.Request.Context(), middleware.UserID(c), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vehicle)
}

// GET /api/parking/history?month=&year=
func (h *ParkingHandler) History(c *gin.Context) {
	var filter domain.HistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, err)
		return
	}

	entries, err := h.reports.History(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// POST /api/parking/history/refresh
func (h *ParkingHandler) RefreshHistory(c *gin.Context) {
	h.reports.RefreshHistory(middleware.UserID(c))
	c.JSON(http.StatusOK, gin.H{"message": "History cache cleared"})
}

// POST /api/parking/export-csv?format=xlsx
func (h *ParkingHandler) ExportHistory(c *gin.Context) {
	format := domain.ExportFormat(c.DefaultQuery("format", string(domain.FormatCSV)))
	job, err := h.exports.RequestExport(c.Request.Context(), middleware.UserID(c), format)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Export started", "task_id": job.ID, "status": job.Status})
}

// GET /api/parking/export-csv-status/:job_id
func (h *ParkingHandler) ExportStatus(c *gin.Context) {
	status, err := h.exports.Status(c.Request.Context(), middleware.UserID(c), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GET /api/parking/download-csv/:job_id
func (h *ParkingHandler) DownloadExport(c *gin.Context) {
	path, err := h.exports.DownloadPath(c.Request.Context(), middleware.UserID(c), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
