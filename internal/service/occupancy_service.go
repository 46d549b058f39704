package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

// OccupancyService owns park, auto-park and unpark. Each operation runs in one
// transaction so the spot occupant and the active session change together.
type OccupancyService struct {
	tx          repository.Transactor
	lotRepo     repository.ParkingLotRepository
	spotRepo    repository.ParkingSpotRepository
	vehicleRepo repository.VehicleRepository
	sessionRepo repository.ParkingSessionRepository
	cache       Cache
	broadcaster OccupancyBroadcaster
	logger      *logrus.Logger
	now         func() time.Time
}

func NewOccupancyService(
	tx repository.Transactor,
	lotRepo repository.ParkingLotRepository,
	spotRepo repository.ParkingSpotRepository,
	vehicleRepo repository.VehicleRepository,
	sessionRepo repository.ParkingSessionRepository,
	cache Cache,
	broadcaster OccupancyBroadcaster,
	logger *logrus.Logger,
) *OccupancyService {
	return &OccupancyService{
		tx:          tx,
		lotRepo:     lotRepo,
		spotRepo:    spotRepo,
		vehicleRepo: vehicleRepo,
		sessionRepo: sessionRepo,
		cache:       cache,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock replaces the time source.
func (s *OccupancyService) SetClock(now func() time.Time) {
	s.now = now
}

// Park puts the vehicle with the given plate into a specific spot, registering
// the plate to the user first if it is new.
func (s *OccupancyService) Park(ctx context.Context, userID int, plate string, spotID int) (*domain.ParkResult, error) {
	plate = domain.NormalizePlate(plate)
	if plate == "" || spotID <= 0 {
		return nil, ErrInvalidParkRequest
	}

	var result *domain.ParkResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		spot, err := s.spotRepo.FindByID(ctx, spotID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSpotNotFound
			}
			return err
		}
		if spot.Occupied() {
			return ErrSpotOccupied
		}

		vehicle, err := s.vehicleRepo.FindOrCreateByPlate(ctx, userID, plate)
		if err != nil {
			return err
		}
		if vehicle.UserID != userID {
			return ErrVehicleOwnedByOther
		}
		if vehicle.Parked() {
			return ErrVehicleAlreadyParked
		}

		lot, err := s.lotRepo.FindByID(ctx, spot.LotID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrLotNotFound
			}
			return err
		}

		result, err = s.occupy(ctx, userID, vehicle, spot, lot)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(userID, domain.EventSpotOccupied, result.LotID, result.LotName, result.SpotID,
		result.SpotNumber, result.StartTime)
	s.logger.WithFields(logrus.Fields{
		"user_id": userID, "vehicle_id": result.VehicleID, "spot_id": result.SpotID, "session_id": result.SessionID,
	}).Info("vehicle parked")
	return result, nil
}

// AutoPark assigns the lowest-numbered free spot in the lot to the user's vehicle.
func (s *OccupancyService) AutoPark(ctx context.Context, userID, vehicleID, lotID int) (*domain.ParkResult, error) {
	if vehicleID <= 0 {
		return nil, ErrInvalidVehicleID
	}
	if lotID <= 0 {
		return nil, ErrInvalidLotID
	}

	var result *domain.ParkResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		vehicle, err := s.ownedVehicle(ctx, userID, vehicleID)
		if err != nil {
			return err
		}
		if vehicle.Parked() {
			return ErrVehicleAlreadyParked
		}

		lot, err := s.lotRepo.FindByID(ctx, lotID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrLotNotFound
			}
			return err
		}

		spot, err := s.spotRepo.FindFirstAvailableByLotID(ctx, lotID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoAvailableSpot
			}
			return err
		}

		result, err = s.occupy(ctx, userID, vehicle, spot, lot)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(userID, domain.EventSpotOccupied, result.LotID, result.LotName, result.SpotID,
		result.SpotNumber, result.StartTime)
	s.logger.WithFields(logrus.Fields{
		"user_id": userID, "vehicle_id": vehicleID, "lot_id": lotID, "spot_id": result.SpotID,
	}).Info("vehicle auto-parked")
	return result, nil
}

func (s *OccupancyService) occupy(ctx context.Context, userID int, vehicle *domain.Vehicle, spot *domain.ParkingSpot, lot *domain.ParkingLot) (*domain.ParkResult, error) {
	if err := s.spotRepo.Occupy(ctx, spot.ID, vehicle.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleWrite):
			return nil, ErrSpotOccupied
		case errors.Is(err, repository.ErrDuplicateEntry):
			return nil, ErrVehicleAlreadyParked
		}
		return nil, err
	}

	session := &domain.ParkingSession{
		UserID:    userID,
		VehicleID: vehicle.ID,
		LotID:     lot.ID,
		SpotID:    spot.ID,
		StartTime: s.now().UTC(),
		Status:    domain.SessionActive,
	}
	if _, err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrVehicleAlreadyParked
		}
		return nil, err
	}

	return &domain.ParkResult{
		SessionID:    session.ID,
		VehicleID:    vehicle.ID,
		LicensePlate: vehicle.LicensePlate,
		SpotID:       spot.ID,
		SpotNumber:   spot.SpotNumber,
		LotID:        lot.ID,
		LotName:      lot.Name,
		StartTime:    session.StartTime,
	}, nil
}

// Unpark releases the spot held by the vehicle and closes its active session
// with the billed cost.
func (s *OccupancyService) Unpark(ctx context.Context, userID, vehicleID int) (*domain.UnparkResult, error) {
	if vehicleID <= 0 {
		return nil, ErrInvalidVehicleID
	}

	var result *domain.UnparkResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		vehicle, err := s.ownedVehicle(ctx, userID, vehicleID)
		if err != nil {
			return err
		}

		spot, err := s.spotRepo.FindByVehicleIDForUpdate(ctx, vehicle.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrVehicleNotParked
			}
			return err
		}

		session, err := s.sessionRepo.FindActive(ctx, userID, vehicle.ID, spot.LotID, spot.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.WithFields(logrus.Fields{
					"user_id": userID, "vehicle_id": vehicle.ID, "spot_id": spot.ID, "lot_id": spot.LotID,
				}).Error("spot is held by vehicle but no active session matches")
				return ErrActiveSessionMissing
			}
			return err
		}

		lot, err := s.lotRepo.FindByID(ctx, spot.LotID)
		if err != nil {
			return fmt.Errorf("load lot %d for billing: %w", spot.LotID, err)
		}

		end := s.now().UTC()
		hours, cost := ComputeCost(session.StartTime, end, lot.PricePerHour)

		if err := s.spotRepo.Release(ctx, spot.ID, vehicle.ID); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return ErrVehicleNotParked
			}
			return err
		}
		if err := s.sessionRepo.Close(ctx, session.ID, end, cost); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return ErrActiveSessionMissing
			}
			return err
		}

		result = &domain.UnparkResult{
			SessionID:    session.ID,
			VehicleID:    vehicle.ID,
			LicensePlate: vehicle.LicensePlate,
			SpotID:       spot.ID,
			SpotNumber:   spot.SpotNumber,
			LotID:        lot.ID,
			LotName:      lot.Name,
			StartTime:    session.StartTime,
			EndTime:      end,
			Hours:        hours,
			Cost:         cost,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(userID, domain.EventSpotReleased, result.LotID, result.LotName, result.SpotID,
		result.SpotNumber, result.EndTime)
	s.logger.WithFields(logrus.Fields{
		"user_id": userID, "vehicle_id": vehicleID, "spot_id": result.SpotID,
		"session_id": result.SessionID, "hours": result.Hours, "cost": result.Cost,
	}).Info("vehicle unparked")
	return result, nil
}

func (s *OccupancyService) ownedVehicle(ctx context.Context, userID, vehicleID int) (*domain.Vehicle, error) {
	vehicle, err := s.vehicleRepo.FindByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	if vehicle.UserID != userID {
		return nil, ErrVehicleNotFound
	}
	return vehicle, nil
}

func (s *OccupancyService) afterCommit(userID int, eventType domain.OccupancyEventType, lotID int, lotName string,
	spotID, spotNumber int, at time.Time) {
	invalidateOccupancy(s.cache, userID)
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastOccupancy(domain.OccupancyEvent{
		Type:       eventType,
		LotID:      lotID,
		LotName:    lotName,
		SpotID:     spotID,
		SpotNumber: spotNumber,
		Timestamp:  at,
	})
}
