package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"parkease/internal/cache"
	"parkease/internal/domain"
	"parkease/internal/repository"
)

type VehicleService struct {
	vehicleRepo repository.VehicleRepository
	cache       Cache
	ttls        CacheTTLs
	logger      *logrus.Logger
}

func NewVehicleService(vehicleRepo repository.VehicleRepository, cache Cache, ttls CacheTTLs, logger *logrus.Logger) *VehicleService {
	return &VehicleService{vehicleRepo: vehicleRepo, cache: cache, ttls: ttls, logger: logger}
}

// ListForUser returns the user's vehicles with where each one is parked, if anywhere.
func (s *VehicleService) ListForUser(ctx context.Context, userID int) ([]domain.VehicleView, error) {
	return remember(s.cache, cache.KeyVehicles(userID), s.ttls.Lots, func() ([]domain.VehicleView, error) {
		views, err := s.vehicleRepo.FindByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		for i := range views {
			views[i].IsParked = views[i].Parked()
		}
		return views, nil
	})
}

func (s *VehicleService) Register(ctx context.Context, userID int, dto domain.RegisterVehicleDTO) (*domain.Vehicle, error) {
	plate := domain.NormalizePlate(dto.LicensePlate)
	if plate == "" {
		return nil, ErrInvalidPlate
	}

	vehicle, err := s.vehicleRepo.Create(ctx, &domain.Vehicle{UserID: userID, LicensePlate: plate})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrPlateTaken
		}
		return nil, err
	}

	invalidate(s.cache, cache.KeyVehicles(userID))
	s.logger.WithFields(logrus.Fields{"user_id": userID, "vehicle_id": vehicle.ID}).Info("vehicle registered")
	return vehicle, nil
}
