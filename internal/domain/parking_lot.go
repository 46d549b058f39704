package domain

import "time"

type ParkingLot struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Pincode      string    `json:"pincode"`
	PricePerHour float64   `json:"price_per_hour"`
	MaxSpots     int       `json:"max_spots"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LotWithStats carries the spot counts shown in lot listings.
type LotWithStats struct {
	ParkingLot
	TotalSpots     int `json:"total_spots" db:"total_spots"`
	OccupiedSpots  int `json:"occupied_spots" db:"occupied_spots"`
	AvailableSpots int `json:"available_spots" db:"available_spots"`
}

type CreateParkingLotDTO struct {
	Name         string  `json:"name" binding:"required"`
	Address      string  `json:"address" binding:"required"`
	Pincode      string  `json:"pincode" binding:"required"`
	PricePerHour float64 `json:"price_per_hour" binding:"required,gt=0"`
	MaxSpots     int     `json:"max_spots" binding:"gte=0,lte=10000"`
}

// UpdateParkingLotDTO is a partial update; nil fields are left unchanged.
type UpdateParkingLotDTO struct {
	Name         *string  `json:"name"`
	Address      *string  `json:"address"`
	Pincode      *string  `json:"pincode"`
	PricePerHour *float64 `json:"price_per_hour"`
	MaxSpots     *int     `json:"max_spots"`
}

func (d UpdateParkingLotDTO) Empty() bool {
	return d.Name == nil && d.Address == nil && d.Pincode == nil && d.PricePerHour == nil && d.MaxSpots == nil
}
