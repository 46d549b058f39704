package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v4"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type parkingSpotRepository struct{ s *Store }

func NewParkingSpotRepository(s *Store) repository.ParkingSpotRepository {
	return &parkingSpotRepository{s: s}
}

func (r *parkingSpotRepository) CreateNumbers(ctx context.Context, lotID int, numbers []int) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.t.lots[lotID]; !ok {
		return fmt.Errorf("ParkingSpotRepository.CreateNumbers: lot %d does not exist", lotID)
	}
	for _, n := range numbers {
		for _, sp := range r.s.t.spots {
			if sp.LotID == lotID && sp.SpotNumber == n {
				return fmt.Errorf("%w: spot %d in lot %d", repository.ErrDuplicateEntry, n, lotID)
			}
		}
		id := r.s.nextID("parking_spots")
		r.s.t.spots[id] = domain.ParkingSpot{ID: id, LotID: lotID, SpotNumber: n, CreatedAt: r.s.now()}
	}
	return nil
}

func (r *parkingSpotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSpot, error) {
	defer r.s.lock(ctx)()
	sp, ok := r.s.t.spots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sp, nil
}

func (r *parkingSpotRepository) FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error) {
	defer r.s.lock(ctx)()
	return r.s.lotSpots(lotID), nil
}

func (r *parkingSpotRepository) FindFirstAvailableByLotID(ctx context.Context, lotID int) (*domain.ParkingSpot, error) {
	defer r.s.lock(ctx)()
	for _, sp := range r.s.lotSpots(lotID) {
		if !sp.Occupied() {
			return &sp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *parkingSpotRepository) FindByVehicleIDForUpdate(ctx context.Context, vehicleID int) (*domain.ParkingSpot, error) {
	defer r.s.lock(ctx)()
	sp, ok := r.s.spotOf(vehicleID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sp, nil
}

func (r *parkingSpotRepository) Occupy(ctx context.Context, spotID, vehicleID int) error {
	defer r.s.lock(ctx)()
	sp, ok := r.s.t.spots[spotID]
	if !ok || sp.Occupied() {
		return repository.ErrStaleWrite
	}
	if _, parked := r.s.spotOf(vehicleID); parked {
		return fmt.Errorf("%w: vehicle %d already occupies a spot", repository.ErrDuplicateEntry, vehicleID)
	}
	sp.VehicleID = null.IntFrom(int64(vehicleID))
	r.s.t.spots[spotID] = sp
	return nil
}

func (r *parkingSpotRepository) Release(ctx context.Context, spotID, vehicleID int) error {
	defer r.s.lock(ctx)()
	sp, ok := r.s.t.spots[spotID]
	if !ok || !sp.VehicleID.Valid || int(sp.VehicleID.Int64) != vehicleID {
		return repository.ErrStaleWrite
	}
	sp.VehicleID = null.Int{}
	r.s.t.spots[spotID] = sp
	return nil
}

func (r *parkingSpotRepository) CountByLot(ctx context.Context, lotID int) (int, int, error) {
	defer r.s.lock(ctx)()
	total, occupied := r.s.countSpots(lotID)
	return total, occupied, nil
}

func (r *parkingSpotRepository) DeleteHighestFree(ctx context.Context, lotID int, n int) (int, error) {
	defer r.s.lock(ctx)()
	spots := r.s.lotSpots(lotID)
	deleted := 0
	for i := len(spots) - 1; i >= 0 && deleted < n; i-- {
		if spots[i].Occupied() {
			continue
		}
		r.s.detachSessions(spots[i].ID)
		delete(r.s.t.spots, spots[i].ID)
		deleted++
	}
	return deleted, nil
}

func (r *parkingSpotRepository) DeleteByLot(ctx context.Context, lotID int) error {
	defer r.s.lock(ctx)()
	for id, sp := range r.s.t.spots {
		if sp.LotID == lotID {
			delete(r.s.t.spots, id)
		}
	}
	return nil
}

func (r *parkingSpotRepository) Search(ctx context.Context, q string) ([]domain.SpotSearchResult, error) {
	defer r.s.lock(ctx)()
	term := strings.ToLower(strings.TrimSpace(q))
	number, numErr := strconv.Atoi(term)
	if numErr != nil {
		number = -1
	}

	results := []domain.SpotSearchResult{}
	for _, sp := range r.s.t.spots {
		lotName := r.s.t.lots[sp.LotID].Name
		match := strings.Contains(strings.ToLower(lotName), term) ||
			sp.SpotNumber == number ||
			(term == "occupied" && sp.Occupied()) ||
			(term == "available" && !sp.Occupied())
		if match {
			results = append(results, domain.NewSpotSearchResult(sp, lotName))
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].LotName != results[j].LotName {
			return results[i].LotName < results[j].LotName
		}
		return results[i].SpotNumber < results[j].SpotNumber
	})
	if len(results) > 200 {
		results = results[:200]
	}
	return results, nil
}

// lotSpots returns the lot's spots ordered by number. Callers hold the lock.
func (s *Store) lotSpots(lotID int) []domain.ParkingSpot {
	spots := []domain.ParkingSpot{}
	for _, sp := range s.t.spots {
		if sp.LotID == lotID {
			spots = append(spots, sp)
		}
	}
	sort.Slice(spots, func(i, j int) bool { return spots[i].SpotNumber < spots[j].SpotNumber })
	return spots
}

// detachSessions clears the spot reference on sessions of a removed spot,
// keeping the rows and their copied spot number. Callers hold the lock.
func (s *Store) detachSessions(spotID int) {
	for id, ps := range s.t.sessions {
		if ps.SpotID == spotID {
			ps.SpotID = 0
			s.t.sessions[id] = ps
		}
	}
}
