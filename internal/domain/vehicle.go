package domain

import (
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

// Vehicle.SpotID is read-only and comes from the spot that references the vehicle.
type Vehicle struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	LicensePlate string    `json:"license_plate"`
	SpotID       null.Int  `json:"spot_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (v Vehicle) Parked() bool {
	return v.SpotID.Valid
}

type VehicleView struct {
	Vehicle
	IsParked   bool        `json:"is_parked"`
	SpotNumber null.Int    `json:"spot_number"`
	LotID      null.Int    `json:"lot_id"`
	LotName    null.String `json:"lot_name"`
}

type RegisterVehicleDTO struct {
	LicensePlate string `json:"license_plate" binding:"required"`
}

func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}
