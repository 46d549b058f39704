package service

import (
	"errors"

	"parkease/internal/repository"
)

// Error kinds. Every service error unwraps to exactly one of these, which is
// what the HTTP layer maps to a status code.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInconsistent marks stored state that breaks an occupancy invariant.
	ErrInconsistent = errors.New("inconsistent state")
)

type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrInvalidParkRequest  = newError(ErrInvalidInput, "Vehicle number and spot ID are required")
	ErrInvalidVehicleID    = newError(ErrInvalidInput, "Vehicle ID is required")
	ErrInvalidLotID        = newError(ErrInvalidInput, "Lot ID is required")
	ErrInvalidPlate        = newError(ErrInvalidInput, "License plate is required")
	ErrInvalidPeriod       = newError(ErrInvalidInput, "Period must be one of daily, weekly, monthly")
	ErrInvalidMonth        = newError(ErrInvalidInput, "Month must be between 1 and 12")
	ErrNoLotChanges        = newError(ErrInvalidInput, "No valid fields to update")
	ErrInvalidReminderTime = newError(ErrInvalidInput, "Reminder time must be a valid hour (0-23) and minute (0-59)")
	ErrInvalidRole         = newError(ErrInvalidInput, "Role must be user or admin")

	ErrSpotNotFound    = newError(ErrNotFound, "Spot not found")
	ErrLotNotFound     = newError(ErrNotFound, "Parking lot not found")
	ErrVehicleNotFound = newError(ErrNotFound, "Vehicle not found")
	ErrUserNotFound    = newError(ErrNotFound, "User not found")
	ErrJobNotFound     = newError(ErrNotFound, "Export task not found")
	ErrExportMissing   = newError(ErrNotFound, "File not found")

	ErrSpotOccupied         = newError(ErrConflict, "Spot is already occupied")
	ErrVehicleAlreadyParked = newError(ErrConflict, "Vehicle is already parked")
	ErrVehicleNotParked     = newError(ErrConflict, "Vehicle is not currently parked")
	ErrNoAvailableSpot      = newError(ErrConflict, "No available spots in this lot")
	ErrCapacityConflict     = newError(ErrConflict, "Cannot reduce capacity below the number of occupied spots")
	ErrLotHasOccupiedSpots  = newError(ErrConflict, "Cannot delete parking lot with occupied spots")
	ErrUserHasParkedVehicle = newError(ErrConflict, "Cannot delete user with a parked vehicle")
	ErrPlateTaken           = newError(ErrConflict, "Vehicle with this license plate already exists")
	ErrEmailTaken           = newError(ErrConflict, "Email already registered")

	ErrVehicleOwnedByOther = newError(ErrForbidden, "Vehicle is registered to another user")
	ErrAccessDenied        = newError(ErrForbidden, "Access denied")

	ErrInvalidCredentials = newError(ErrUnauthorized, "Invalid email or password")
	ErrInvalidToken       = newError(ErrUnauthorized, "Invalid or expired token")

	// ErrActiveSessionMissing means a vehicle holds a spot with no matching
	// active session. The store is left untouched for an operator to inspect.
	ErrActiveSessionMissing = newError(ErrInconsistent, "Active parking history not found")
)

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
