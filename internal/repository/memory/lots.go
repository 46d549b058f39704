package memory

import (
	"context"
	"sort"
	"strings"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type parkingLotRepository struct{ s *Store }

func NewParkingLotRepository(s *Store) repository.ParkingLotRepository {
	return &parkingLotRepository{s: s}
}

func (r *parkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	defer r.s.lock(ctx)()
	lot.ID = r.s.nextID("parking_lots")
	lot.CreatedAt = r.s.now()
	lot.UpdatedAt = lot.CreatedAt
	r.s.t.lots[lot.ID] = *lot
	return lot, nil
}

func (r *parkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	defer r.s.lock(ctx)()
	l, ok := r.s.t.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r *parkingLotRepository) FindByIDForUpdate(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return r.FindByID(ctx, id)
}

func (r *parkingLotRepository) FindAllWithStats(ctx context.Context) ([]domain.LotWithStats, error) {
	defer r.s.lock(ctx)()
	return r.s.lotsWhere(func(domain.ParkingLot) bool { return true }), nil
}

func (r *parkingLotRepository) Search(ctx context.Context, query string) ([]domain.LotWithStats, error) {
	defer r.s.lock(ctx)()
	term := strings.ToLower(strings.TrimSpace(query))
	return r.s.lotsWhere(func(l domain.ParkingLot) bool {
		return strings.Contains(strings.ToLower(l.Name), term) ||
			strings.Contains(strings.ToLower(l.Address), term) ||
			strings.Contains(strings.ToLower(l.Pincode), term)
	}), nil
}

func (r *parkingLotRepository) Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	defer r.s.lock(ctx)()
	current, ok := r.s.t.lots[lot.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	updated := *lot
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = r.s.now()
	r.s.t.lots[lot.ID] = updated
	return &updated, nil
}

// Delete cascades to the lot's spots and sessions.
func (r *parkingLotRepository) Delete(ctx context.Context, id int) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.t.lots[id]; !ok {
		return repository.ErrNotFound
	}
	for sid, ps := range r.s.t.sessions {
		if ps.LotID == id {
			delete(r.s.t.sessions, sid)
		}
	}
	for sid, sp := range r.s.t.spots {
		if sp.LotID == id {
			delete(r.s.t.spots, sid)
		}
	}
	delete(r.s.t.lots, id)
	return nil
}

// lotsWhere returns matching lots with spot counts, ordered by name then id.
// Callers hold the lock.
func (s *Store) lotsWhere(keep func(domain.ParkingLot) bool) []domain.LotWithStats {
	out := []domain.LotWithStats{}
	for _, l := range s.t.lots {
		if !keep(l) {
			continue
		}
		total, occupied := s.countSpots(l.ID)
		out = append(out, domain.LotWithStats{
			ParkingLot:     l,
			TotalSpots:     total,
			OccupiedSpots:  occupied,
			AvailableSpots: total - occupied,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) countSpots(lotID int) (total, occupied int) {
	for _, sp := range s.t.spots {
		if sp.LotID != lotID {
			continue
		}
		total++
		if sp.Occupied() {
			occupied++
		}
	}
	return total, occupied
}
