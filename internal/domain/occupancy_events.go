package domain

import "time"

type OccupancyEventType string

const (
	EventSpotOccupied OccupancyEventType = "spot_occupied"
	EventSpotReleased OccupancyEventType = "spot_released"
)

// OccupancyEvent is pushed to live-feed subscribers after a park or unpark
// commits. The feed is public, so it names the spot and never the vehicle.
type OccupancyEvent struct {
	Type       OccupancyEventType `json:"type"`
	LotID      int                `json:"lot_id"`
	LotName    string             `json:"lot_name"`
	SpotID     int                `json:"spot_id"`
	SpotNumber int                `json:"spot_number"`
	Timestamp  time.Time          `json:"timestamp"`
}
