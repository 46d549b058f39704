package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionOut    SessionStatus = "out"
)

// ParkingSession is one ledger row. EndTime and Cost stay null while the
// session is active and are written exactly once when it closes.
type ParkingSession struct {
	ID        int `json:"id"`
	UserID    int `json:"user_id"`
	VehicleID int `json:"vehicle_id"`
	LotID     int `json:"lot_id"`
	// SpotID is 0 once the spot has been removed; SpotNumber is kept.
	SpotID     int           `json:"spot_id"`
	SpotNumber int           `json:"spot_number"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    null.Time     `json:"end_time"`
	Cost       null.Float    `json:"cost"`
	Status     SessionStatus `json:"status"`
}

type ParkRequestDTO struct {
	VehicleNo string `json:"vehicle_no" binding:"required"`
	SpotID    int    `json:"spot_id" binding:"required"`
}

type AutoParkRequestDTO struct {
	VehicleID int `json:"vehicle_id" binding:"required"`
	LotID     int `json:"lot_id" binding:"required"`
}

type UnparkRequestDTO struct {
	VehicleID int `json:"vehicle_id" binding:"required"`
}

type ParkResult struct {
	SessionID    int       `json:"session_id"`
	VehicleID    int       `json:"vehicle_id"`
	LicensePlate string    `json:"license_plate"`
	SpotID       int       `json:"spot_id"`
	SpotNumber   int       `json:"spot_number"`
	LotID        int       `json:"lot_id"`
	LotName      string    `json:"lot_name"`
	StartTime    time.Time `json:"start_time"`
}

type UnparkResult struct {
	SessionID    int       `json:"session_id"`
	VehicleID    int       `json:"vehicle_id"`
	LicensePlate string    `json:"license_plate"`
	SpotID       int       `json:"spot_id"`
	SpotNumber   int       `json:"spot_number"`
	LotID        int       `json:"lot_id"`
	LotName      string    `json:"lot_name"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Hours        int       `json:"hours"`
	Cost         float64   `json:"cost"`
}

// SessionRecord is a session joined with its lot, spot and vehicle.
type SessionRecord struct {
	ID           int           `db:"id"`
	UserID       int           `db:"user_id"`
	VehicleID    int           `db:"vehicle_id"`
	LicensePlate string        `db:"license_plate"`
	LotID        int           `db:"lot_id"`
	LotName      string        `db:"lot_name"`
	LotAddress   string        `db:"lot_address"`
	LotPincode   string        `db:"lot_pincode"`
	PricePerHour float64       `db:"price_per_hour"`
	SpotID       int           `db:"spot_id"`
	SpotNumber   int           `db:"spot_number"`
	StartTime    time.Time     `db:"start_time"`
	EndTime      null.Time     `db:"end_time"`
	Cost         null.Float    `db:"cost"`
	Status       SessionStatus `db:"status"`
}

// HistoryEntry is the user-facing history row with display-zone timestamps.
type HistoryEntry struct {
	ID           int           `json:"id"`
	LicensePlate string        `json:"vehicle_no"`
	LotName      string        `json:"location"`
	LotAddress   string        `json:"address"`
	LotPincode   string        `json:"pincode"`
	PricePerHour float64       `json:"price_per_hour"`
	SpotID       int           `json:"spot_id"`
	SpotNumber   int           `json:"spot_number"`
	ParkingTime  string        `json:"parking_time"`
	ReleasedTime null.String   `json:"released_time"`
	Cost         null.Float    `json:"total_cost"`
	Status       SessionStatus `json:"status"`
}

type HistoryFilter struct {
	Month int `form:"month"`
	Year  int `form:"year"`
}
