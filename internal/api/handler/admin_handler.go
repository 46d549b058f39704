package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parkease/internal/domain"
	"parkease/internal/service"
)

type AdminHandler struct {
	users         *service.UserService
	reports       *service.ReportService
	settings      *service.SettingsService
	notifications *service.NotificationService
}

func NewAdminHandler(
	users *service.UserService,
	reports *service.ReportService,
	settings *service.SettingsService,
	notifications *service.NotificationService,
) *AdminHandler {
	return &AdminHandler{users: users, reports: reports, settings: settings, notifications: notifications}
}

type monthRequest struct {
	UserID int `json:"user_id"`
	Month  int `json:"month"`
	Year   int `json:"year"`
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		bindError(c, err)
		return false
	}
	return true
}

// GET /api/admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GET /api/admin/users/search?q=
func (h *AdminHandler) SearchUsers(c *gin.Context) {
	users, err := h.users.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// PUT /api/admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var dto domain.AdminUpdateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), id, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// GET /api/admin/summary/revenue
func (h *AdminHandler) RevenueSummary(c *gin.Context) {
	summary, err := h.reports.RevenueSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GET /api/admin/summary/occupancy
func (h *AdminHandler) OccupancySummary(c *gin.Context) {
	occupancy, err := h.reports.Occupancy(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, occupancy)
}

// GET /api/admin/summary/revenue/timeseries?period=daily&lot_id=
func (h *AdminHandler) RevenueTimeSeries(c *gin.Context) {
	period := domain.Period(c.DefaultQuery("period", string(domain.PeriodDaily)))
	lotID := 0
	if raw := c.Query("lot_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			respondError(c, service.ErrInvalidLotID)
			return
		}
		lotID = id
	}

	points, err := h.reports.RevenueTimeSeries(c.Request.Context(), period, lotID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period, "data": points})
}

// GET /api/admin/reminder-time
func (h *AdminHandler) GetReminderTime(c *gin.Context) {
	settings, err := h.settings.ReminderSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hour": settings.Hour, "minute": settings.Minute, "time": settings.Clock()})
}

// POST /api/admin/reminder-time
func (h *AdminHandler) SetReminderTime(c *gin.Context) {
	var dto domain.UpdateReminderTimeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondError(c, service.ErrInvalidReminderTime)
		return
	}

	settings, err := h.settings.UpdateReminderTime(c.Request.Context(), *dto.Hour, *dto.Minute)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Reminder time updated",
		"hour":    settings.Hour,
		"minute":  settings.Minute,
		"time":    settings.Clock(),
	})
}

// GET /api/admin/reminder-stats
func (h *AdminHandler) ReminderStats(c *gin.Context) {
	stats, err := h.reports.ReminderStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// POST /api/admin/trigger-daily-reminders
func (h *AdminHandler) TriggerDailyReminders(c *gin.Context) {
	taskID, err := h.notifications.ScheduleDailyReminders(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Daily reminders triggered", "task_id": taskID})
}

// POST /api/admin/trigger-monthly-report {user_id, month?, year?}
func (h *AdminHandler) TriggerMonthlyReport(c *gin.Context) {
	var req monthRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.scheduleMonthlyReport(c, req)
}

// POST /api/admin/monthly-report/:user_id {month?, year?}
func (h *AdminHandler) MonthlyReportForUser(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	var req monthRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	req.UserID = id
	h.scheduleMonthlyReport(c, req)
}

func (h *AdminHandler) scheduleMonthlyReport(c *gin.Context, req monthRequest) {
	taskID, err := h.notifications.ScheduleMonthlyReport(c.Request.Context(), req.UserID, req.Month, req.Year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Monthly report queued", "task_id": taskID})
}

// POST /api/admin/monthly-reports/all {month?, year?}
func (h *AdminHandler) TriggerAllMonthlyReports(c *gin.Context) {
	var req monthRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	taskID, err := h.notifications.ScheduleAllMonthlyReports(c.Request.Context(), req.Month, req.Year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Monthly reports queued for all users", "task_id": taskID})
}
