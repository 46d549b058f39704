package memory

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/guregu/null.v4"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type vehicleRepository struct{ s *Store }

func NewVehicleRepository(s *Store) repository.VehicleRepository {
	return &vehicleRepository{s: s}
}

func (r *vehicleRepository) FindOrCreateByPlate(ctx context.Context, userID int, plate string) (*domain.Vehicle, error) {
	defer r.s.lock(ctx)()
	for _, v := range r.s.t.vehicles {
		if v.LicensePlate == plate {
			return r.s.withSpot(v), nil
		}
	}
	return r.s.insertVehicle(domain.Vehicle{UserID: userID, LicensePlate: plate}), nil
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	defer r.s.lock(ctx)()
	for _, v := range r.s.t.vehicles {
		if v.LicensePlate == vehicle.LicensePlate {
			return nil, fmt.Errorf("%w: vehicle '%s' is already registered", repository.ErrDuplicateEntry, vehicle.LicensePlate)
		}
	}
	inserted := r.s.insertVehicle(*vehicle)
	*vehicle = *inserted
	return vehicle, nil
}

func (r *vehicleRepository) FindByID(ctx context.Context, id int) (*domain.Vehicle, error) {
	defer r.s.lock(ctx)()
	v, ok := r.s.t.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.withSpot(v), nil
}

func (r *vehicleRepository) FindByUserID(ctx context.Context, userID int) ([]domain.VehicleView, error) {
	defer r.s.lock(ctx)()
	views := []domain.VehicleView{}
	for _, v := range r.s.t.vehicles {
		if v.UserID != userID {
			continue
		}
		view := domain.VehicleView{Vehicle: *r.s.withSpot(v)}
		if sp, ok := r.s.spotOf(v.ID); ok {
			view.IsParked = true
			view.SpotNumber = null.IntFrom(int64(sp.SpotNumber))
			view.LotID = null.IntFrom(int64(sp.LotID))
			view.LotName = null.StringFrom(r.s.t.lots[sp.LotID].Name)
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

func (s *Store) insertVehicle(v domain.Vehicle) *domain.Vehicle {
	v.ID = s.nextID("vehicles")
	v.CreatedAt = s.now()
	v.SpotID = null.Int{}
	s.t.vehicles[v.ID] = v
	return &v
}

// withSpot fills the read-only SpotID from the spot table.
func (s *Store) withSpot(v domain.Vehicle) *domain.Vehicle {
	v.SpotID = null.Int{}
	if sp, ok := s.spotOf(v.ID); ok {
		v.SpotID = null.IntFrom(int64(sp.ID))
	}
	return &v
}
