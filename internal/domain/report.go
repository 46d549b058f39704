package domain

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func (p Period) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

// LotRevenue counts only closed sessions; active ones appear as InProgress.
type LotRevenue struct {
	LotID             int     `json:"lot_id" db:"lot_id"`
	LotName           string  `json:"lot_name" db:"lot_name"`
	Revenue           float64 `json:"revenue" db:"revenue"`
	CompletedSessions int     `json:"completed_sessions" db:"completed_sessions"`
	InProgress        int     `json:"in_progress" db:"in_progress"`
}

type RevenueSummary struct {
	Lots         []LotRevenue `json:"lots"`
	TotalRevenue float64      `json:"total_revenue"`
}

type LotOccupancy struct {
	LotID         int     `json:"lot_id" db:"lot_id"`
	LotName       string  `json:"lot_name" db:"lot_name"`
	TotalSpots    int     `json:"total_spots" db:"total_spots"`
	Occupied      int     `json:"occupied" db:"occupied"`
	Available     int     `json:"available" db:"available"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

type TimeSeriesPoint struct {
	Period   string  `json:"period"`
	Revenue  float64 `json:"revenue"`
	Sessions int     `json:"sessions"`
}

type DashboardStats struct {
	TotalUsers     int `json:"total_users" db:"total_users"`
	TotalLots      int `json:"total_lots" db:"total_lots"`
	TotalSpots     int `json:"total_spots" db:"total_spots"`
	OccupiedSpots  int `json:"occupied_spots" db:"occupied_spots"`
	AvailableSpots int `json:"available_spots" db:"available_spots"`
	TotalVehicles  int `json:"total_vehicles" db:"total_vehicles"`
	ActiveSessions int `json:"active_sessions" db:"active_sessions"`
}

type ReminderStats struct {
	TotalUsers        int    `json:"total_users"`
	UsersParkedToday  int    `json:"users_parked_today"`
	UsersNeedReminder int    `json:"users_need_reminder"`
	UsersWithActive   int    `json:"users_with_active_parking"`
	ReminderTime      string `json:"reminder_time"`
	LotsAvailable     bool   `json:"parking_lots_available"`
}

type LotUsage struct {
	LotName string  `json:"lot_name"`
	Visits  int     `json:"visits"`
	Spent   float64 `json:"spent"`
}

type MonthlyReport struct {
	UserID            int            `json:"user_id"`
	FullName          string         `json:"full_name"`
	Email             string         `json:"email"`
	Month             int            `json:"month"`
	Year              int            `json:"year"`
	MonthName         string         `json:"month_name"`
	TotalBookings     int            `json:"total_bookings"`
	CompletedSessions int            `json:"completed_sessions"`
	TotalSpent        float64        `json:"total_spent"`
	TotalHours        float64        `json:"total_hours"`
	AvgDurationHours  float64        `json:"avg_duration_hours"`
	MostUsedLot       string         `json:"most_used_lot"`
	LotUsage          []LotUsage     `json:"lot_usage"`
	Recent            []HistoryEntry `json:"recent_sessions"`
	SavingsTip        string         `json:"savings_tip"`
}
