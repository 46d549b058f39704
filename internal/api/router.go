package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"parkease/internal/api/handler"
	"parkease/internal/api/middleware"
	"parkease/internal/domain"
)

// Handlers bundles everything the router mounts. LPR is nil when plate
// recognition is disabled.
type Handlers struct {
	Auth      *handler.AuthHandler
	Parking   *handler.ParkingHandler
	Lots      *handler.ParkingLotHandler
	Admin     *handler.AdminHandler
	LPR       *handler.LPRHandler
	WebSocket *handler.WebSocketHandler
}

func SetupRouter(h Handlers, authMw *middleware.AuthMiddleware, allowedOrigins []string, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Live occupancy feed, no auth.
	r.GET("/ws", h.WebSocket.HandleWebSocket)

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
		authRoutes.GET("/me", authMw.Authenticate(), h.Auth.Me)
		authRoutes.PUT("/me", authMw.Authenticate(), h.Auth.UpdateMe)
	}

	parking := api.Group("/parking")
	parking.Use(authMw.Authenticate())
	{
		parking.GET("/lots", h.Parking.ListLots)
		parking.GET("/lots/:id/spots", h.Parking.ListSpots)
		parking.GET("/vehicles", h.Parking.ListVehicles)
		parking.POST("/vehicles", h.Parking.RegisterVehicle)
		parking.POST("/park", h.Parking.Park)
		parking.POST("/auto-park", h.Parking.AutoPark)
		parking.POST("/unpark", h.Parking.Unpark)
		parking.GET("/history", h.Parking.History)
		parking.POST("/history/refresh", h.Parking.RefreshHistory)
		parking.POST("/export-csv", h.Parking.ExportHistory)
		parking.GET("/export-csv-status/:job_id", h.Parking.ExportStatus)
		parking.GET("/download-csv/:job_id", h.Parking.DownloadExport)
		if h.LPR != nil {
			parking.POST("/detect-plate", h.LPR.DetectPlate)
		}
	}

	admin := api.Group("/admin")
	admin.Use(authMw.Authenticate())
	{
		// Readable by every signed-in user.
		admin.GET("/reminder-time", h.Admin.GetReminderTime)

		adminOnly := admin.Group("")
		adminOnly.Use(authMw.AuthorizeRole(domain.RoleAdmin))

		adminOnly.GET("/dashboard", h.Admin.Dashboard)

		adminOnly.GET("/users", h.Admin.ListUsers)
		adminOnly.GET("/users/search", h.Admin.SearchUsers)
		adminOnly.PUT("/users/:id", h.Admin.UpdateUser)
		adminOnly.DELETE("/users/:id", h.Admin.DeleteUser)

		adminOnly.GET("/parking-lots", h.Lots.ListParkingLots)
		adminOnly.POST("/parking-lots", h.Lots.CreateParkingLot)
		adminOnly.GET("/parking-lots/search", h.Lots.SearchParkingLots)
		adminOnly.GET("/parking-lots/:id", h.Lots.GetParkingLot)
		adminOnly.PUT("/parking-lots/:id", h.Lots.UpdateParkingLot)
		adminOnly.DELETE("/parking-lots/:id", h.Lots.DeleteParkingLot)
		adminOnly.GET("/parking-lots/:id/spots", h.Lots.ListSpots)
		adminOnly.GET("/parking-spots/search", h.Lots.SearchSpots)
		adminOnly.GET("/parking-spots/:id/details", h.Lots.SpotDetails)

		adminOnly.GET("/summary/revenue", h.Admin.RevenueSummary)
		adminOnly.GET("/summary/occupancy", h.Admin.OccupancySummary)
		adminOnly.GET("/summary/revenue/timeseries", h.Admin.RevenueTimeSeries)

		adminOnly.POST("/reminder-time", h.Admin.SetReminderTime)
		adminOnly.GET("/reminder-stats", h.Admin.ReminderStats)
		adminOnly.POST("/trigger-daily-reminders", h.Admin.TriggerDailyReminders)
		adminOnly.POST("/trigger-monthly-report", h.Admin.TriggerMonthlyReport)
		adminOnly.POST("/monthly-report/:user_id", h.Admin.MonthlyReportForUser)
		adminOnly.POST("/monthly-reports/all", h.Admin.TriggerAllMonthlyReports)
	}

	return r
}
