package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"parkease/internal/cache"
	"parkease/internal/domain"
	"parkease/internal/repository"
)

// InventoryService manages lots and their spots, including capacity changes.
type InventoryService struct {
	tx          repository.Transactor
	lotRepo     repository.ParkingLotRepository
	spotRepo    repository.ParkingSpotRepository
	vehicleRepo repository.VehicleRepository
	userRepo    repository.UserRepository
	sessionRepo repository.ParkingSessionRepository
	cache       Cache
	ttls        CacheTTLs
	logger      *logrus.Logger
	now         func() time.Time
}

func NewInventoryService(
	tx repository.Transactor,
	lotRepo repository.ParkingLotRepository,
	spotRepo repository.ParkingSpotRepository,
	vehicleRepo repository.VehicleRepository,
	userRepo repository.UserRepository,
	sessionRepo repository.ParkingSessionRepository,
	cache Cache,
	ttls CacheTTLs,
	logger *logrus.Logger,
) *InventoryService {
	return &InventoryService{
		tx:          tx,
		lotRepo:     lotRepo,
		spotRepo:    spotRepo,
		vehicleRepo: vehicleRepo,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		cache:       cache,
		ttls:        ttls,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *InventoryService) SetClock(now func() time.Time) {
	s.now = now
}

func validateLotFields(name, address, pincode string, price float64, maxSpots int) error {
	switch {
	case strings.TrimSpace(name) == "":
		return newError(ErrInvalidInput, "Name is required")
	case strings.TrimSpace(address) == "":
		return newError(ErrInvalidInput, "Address is required")
	case strings.TrimSpace(pincode) == "":
		return newError(ErrInvalidInput, "Pincode is required")
	case price <= 0:
		return newError(ErrInvalidInput, "Price per hour must be greater than 0")
	case maxSpots < 0:
		return newError(ErrInvalidInput, "Max spots cannot be negative")
	}
	return nil
}

// CreateLot creates the lot and its spots numbered 1..MaxSpots.
func (s *InventoryService) CreateLot(ctx context.Context, dto domain.CreateParkingLotDTO) (*domain.ParkingLot, error) {
	if err := validateLotFields(dto.Name, dto.Address, dto.Pincode, dto.PricePerHour, dto.MaxSpots); err != nil {
		return nil, err
	}

	lot := &domain.ParkingLot{
		Name:         strings.TrimSpace(dto.Name),
		Address:      strings.TrimSpace(dto.Address),
		Pincode:      strings.TrimSpace(dto.Pincode),
		PricePerHour: dto.PricePerHour,
		MaxSpots:     dto.MaxSpots,
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.lotRepo.Create(ctx, lot); err != nil {
			return err
		}
		return s.spotRepo.CreateNumbers(ctx, lot.ID, missingNumbers(nil, lot.MaxSpots))
	})
	if err != nil {
		return nil, err
	}

	invalidate(s.cache, cache.PrefixLots, cache.PrefixSummary)
	s.logger.WithFields(logrus.Fields{"lot_id": lot.ID, "max_spots": lot.MaxSpots}).Info("parking lot created")
	return lot, nil
}

func (s *InventoryService) GetLot(ctx context.Context, id int) (*domain.ParkingLot, error) {
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLotNotFound
		}
		return nil, err
	}
	return lot, nil
}

func (s *InventoryService) ListLots(ctx context.Context) ([]domain.LotWithStats, error) {
	return remember(s.cache, cache.KeyLots(), s.ttls.Lots, func() ([]domain.LotWithStats, error) {
		return s.lotRepo.FindAllWithStats(ctx)
	})
}

func (s *InventoryService) SearchLots(ctx context.Context, q string) ([]domain.LotWithStats, error) {
	return s.lotRepo.Search(ctx, strings.TrimSpace(q))
}

// UpdateLot applies a partial update. A MaxSpots change reconciles the spot
// rows in the same transaction while the lot row is locked.
func (s *InventoryService) UpdateLot(ctx context.Context, id int, dto domain.UpdateParkingLotDTO) (*domain.ParkingLot, error) {
	if dto.Empty() {
		return nil, ErrNoLotChanges
	}

	var updated *domain.ParkingLot
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		lot, err := s.lotRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrLotNotFound
			}
			return err
		}

		if dto.Name != nil {
			lot.Name = strings.TrimSpace(*dto.Name)
		}
		if dto.Address != nil {
			lot.Address = strings.TrimSpace(*dto.Address)
		}
		if dto.Pincode != nil {
			lot.Pincode = strings.TrimSpace(*dto.Pincode)
		}
		if dto.PricePerHour != nil {
			lot.PricePerHour = *dto.PricePerHour
		}
		capacityChanged := dto.MaxSpots != nil && *dto.MaxSpots != lot.MaxSpots
		if dto.MaxSpots != nil {
			lot.MaxSpots = *dto.MaxSpots
		}
		if err := validateLotFields(lot.Name, lot.Address, lot.Pincode, lot.PricePerHour, lot.MaxSpots); err != nil {
			return err
		}

		if capacityChanged {
			if err := s.reconcileSpots(ctx, lot.ID, lot.MaxSpots); err != nil {
				return err
			}
		}

		updated, err = s.lotRepo.Update(ctx, lot)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidate(s.cache, cache.PrefixLots, cache.KeySpots(id), cache.PrefixSummary)
	s.logger.WithFields(logrus.Fields{"lot_id": id, "max_spots": updated.MaxSpots}).Info("parking lot updated")
	return updated, nil
}

// reconcileSpots makes the lot hold exactly capacity spots. Growing fills the
// lowest missing numbers; shrinking removes the highest-numbered free spots and
// fails if occupied spots alone exceed the new capacity.
func (s *InventoryService) reconcileSpots(ctx context.Context, lotID, capacity int) error {
	spots, err := s.spotRepo.FindByLotID(ctx, lotID)
	if err != nil {
		return err
	}
	occupied := 0
	for _, sp := range spots {
		if sp.Occupied() {
			occupied++
		}
	}
	total := len(spots)

	switch {
	case capacity < occupied:
		return newError(ErrConflict, fmt.Sprintf(
			"Cannot reduce capacity to %d: %d spots are currently occupied", capacity, occupied))
	case capacity > total:
		existing := make([]int, 0, total)
		for _, sp := range spots {
			existing = append(existing, sp.SpotNumber)
		}
		return s.spotRepo.CreateNumbers(ctx, lotID, missingNumbers(existing, capacity-total))
	case capacity < total:
		want := total - capacity
		removed, err := s.spotRepo.DeleteHighestFree(ctx, lotID, want)
		if err != nil {
			return err
		}
		if removed < want {
			return ErrCapacityConflict
		}
	}
	return nil
}

// missingNumbers returns the n lowest positive integers not in existing.
func missingNumbers(existing []int, n int) []int {
	taken := make(map[int]struct{}, len(existing))
	for _, num := range existing {
		taken[num] = struct{}{}
	}
	out := make([]int, 0, n)
	for num := 1; len(out) < n; num++ {
		if _, ok := taken[num]; !ok {
			out = append(out, num)
		}
	}
	return out
}

// DeleteLot removes a lot and its spots. Refused while any spot is occupied.
func (s *InventoryService) DeleteLot(ctx context.Context, id int) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.lotRepo.FindByIDForUpdate(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrLotNotFound
			}
			return err
		}
		_, occupied, err := s.spotRepo.CountByLot(ctx, id)
		if err != nil {
			return err
		}
		if occupied > 0 {
			return ErrLotHasOccupiedSpots
		}
		if err := s.spotRepo.DeleteByLot(ctx, id); err != nil {
			return err
		}
		return s.lotRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	invalidate(s.cache, cache.PrefixLots, cache.KeySpots(id), cache.PrefixSummary)
	s.logger.WithField("lot_id", id).Info("parking lot deleted")
	return nil
}

func (s *InventoryService) ListSpots(ctx context.Context, lotID int) ([]domain.ParkingSpot, error) {
	return remember(s.cache, cache.KeySpots(lotID), s.ttls.Lots, func() ([]domain.ParkingSpot, error) {
		if _, err := s.GetLot(ctx, lotID); err != nil {
			return nil, err
		}
		spots, err := s.spotRepo.FindByLotID(ctx, lotID)
		if err != nil {
			return nil, err
		}
		sort.Slice(spots, func(i, j int) bool { return spots[i].SpotNumber < spots[j].SpotNumber })
		return spots, nil
	})
}

func (s *InventoryService) SearchSpots(ctx context.Context, q string) ([]domain.SpotSearchResult, error) {
	return s.spotRepo.Search(ctx, q)
}

// SpotDetails reports the occupant of a spot and the running cost of its stay.
func (s *InventoryService) SpotDetails(ctx context.Context, spotID int) (*domain.SpotDetails, error) {
	spot, err := s.spotRepo.FindByID(ctx, spotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSpotNotFound
		}
		return nil, err
	}
	lot, err := s.GetLot(ctx, spot.LotID)
	if err != nil {
		return nil, err
	}

	details := &domain.SpotDetails{Spot: *spot, LotName: lot.Name, PricePerHour: lot.PricePerHour}
	if !spot.Occupied() {
		return details, nil
	}

	vehicle, err := s.vehicleRepo.FindByID(ctx, int(spot.VehicleID.Int64))
	if err != nil {
		return nil, fmt.Errorf("load occupant of spot %d: %w", spot.ID, err)
	}
	details.Vehicle = vehicle

	owner, err := s.userRepo.FindByID(ctx, vehicle.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	details.Owner = owner

	session, err := s.sessionRepo.FindActiveBySpotID(ctx, spot.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.WithFields(logrus.Fields{"spot_id": spot.ID, "vehicle_id": vehicle.ID}).
				Warn("occupied spot has no active session")
			return details, nil
		}
		return nil, err
	}
	details.StartTime.SetValid(session.StartTime)
	_, details.EstimatedCost = ComputeCost(session.StartTime, s.now(), lot.PricePerHour)
	return details, nil
}
