package domain

import (
	"encoding/json"
	"time"

	"gopkg.in/guregu/null.v4"
)

// ParkingSpot holds the reference to its occupant. Occupancy is derived from
// VehicleID and is never stored separately.
type ParkingSpot struct {
	ID         int       `json:"id"`
	LotID      int       `json:"lot_id"`
	SpotNumber int       `json:"spot_number"`
	VehicleID  null.Int  `json:"vehicle_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s ParkingSpot) Occupied() bool {
	return s.VehicleID.Valid
}

func (s ParkingSpot) MarshalJSON() ([]byte, error) {
	type alias ParkingSpot
	return json.Marshal(struct {
		alias
		IsOccupied bool   `json:"is_occupied"`
		Status     string `json:"status"`
	}{
		alias:      alias(s),
		IsOccupied: s.Occupied(),
		Status:     s.StatusWord(),
	})
}

// StatusWord is the single-letter status used by the admin UI: O occupied, A available.
func (s ParkingSpot) StatusWord() string {
	if s.Occupied() {
		return "O"
	}
	return "A"
}

// SpotSearchResult is flattened; embedding ParkingSpot would promote its MarshalJSON.
type SpotSearchResult struct {
	ID         int    `json:"id"`
	LotID      int    `json:"lot_id"`
	LotName    string `json:"lot_name"`
	SpotNumber int    `json:"spot_number"`
	IsOccupied bool   `json:"is_occupied"`
	Status     string `json:"status"`
}

func NewSpotSearchResult(s ParkingSpot, lotName string) SpotSearchResult {
	return SpotSearchResult{
		ID:         s.ID,
		LotID:      s.LotID,
		LotName:    lotName,
		SpotNumber: s.SpotNumber,
		IsOccupied: s.Occupied(),
		Status:     s.StatusWord(),
	}
}

// SpotDetails describes who is in a spot right now and what they owe so far.
type SpotDetails struct {
	Spot          ParkingSpot `json:"spot"`
	LotName       string      `json:"lot_name"`
	PricePerHour  float64     `json:"price_per_hour"`
	Vehicle       *Vehicle    `json:"vehicle,omitempty"`
	Owner         *User       `json:"user,omitempty"`
	StartTime     null.Time   `json:"start_time"`
	EstimatedCost float64     `json:"estimated_cost"`
}
