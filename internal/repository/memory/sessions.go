package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gopkg.in/guregu/null.v4"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type parkingSessionRepository struct{ s *Store }

func NewParkingSessionRepository(s *Store) repository.ParkingSessionRepository {
	return &parkingSessionRepository{s: s}
}

func (r *parkingSessionRepository) Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	defer r.s.lock(ctx)()
	if session.Status == domain.SessionActive {
		for _, ps := range r.s.t.sessions {
			if ps.VehicleID == session.VehicleID && ps.Status == domain.SessionActive {
				return nil, fmt.Errorf("%w: vehicle %d already has an active session", repository.ErrDuplicateEntry, session.VehicleID)
			}
		}
	}
	spot, ok := r.s.t.spots[session.SpotID]
	if !ok {
		return nil, fmt.Errorf("ParkingSessionRepository.Create: spot %d: %w", session.SpotID, repository.ErrNotFound)
	}
	session.SpotNumber = spot.SpotNumber
	session.ID = r.s.nextID("parking_sessions")
	r.s.t.sessions[session.ID] = *session
	return session, nil
}

func (r *parkingSessionRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSession, error) {
	defer r.s.lock(ctx)()
	ps, ok := r.s.t.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ps, nil
}

func (r *parkingSessionRepository) FindActive(ctx context.Context, userID, vehicleID, lotID, spotID int) (*domain.ParkingSession, error) {
	defer r.s.lock(ctx)()
	for _, ps := range r.s.t.sessions {
		if ps.Status == domain.SessionActive && ps.UserID == userID && ps.VehicleID == vehicleID &&
			ps.LotID == lotID && ps.SpotID == spotID {
			return &ps, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *parkingSessionRepository) FindActiveBySpotID(ctx context.Context, spotID int) (*domain.ParkingSession, error) {
	defer r.s.lock(ctx)()
	var found *domain.ParkingSession
	for _, ps := range r.s.t.sessions {
		if ps.Status != domain.SessionActive || ps.SpotID != spotID {
			continue
		}
		if found == nil || ps.StartTime.After(found.StartTime) {
			candidate := ps
			found = &candidate
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *parkingSessionRepository) Close(ctx context.Context, id int, endTime time.Time, cost float64) error {
	defer r.s.lock(ctx)()
	ps, ok := r.s.t.sessions[id]
	if !ok || ps.Status != domain.SessionActive {
		return repository.ErrStaleWrite
	}
	ps.EndTime = null.TimeFrom(endTime)
	ps.Cost = null.FloatFrom(cost)
	ps.Status = domain.SessionOut
	r.s.t.sessions[id] = ps
	return nil
}

func (r *parkingSessionRepository) FindRecordsByUser(ctx context.Context, userID int, from, to time.Time) ([]domain.SessionRecord, error) {
	defer r.s.lock(ctx)()
	records := []domain.SessionRecord{}
	for _, ps := range r.s.t.sessions {
		if ps.UserID != userID {
			continue
		}
		if !from.IsZero() && ps.StartTime.Before(from) {
			continue
		}
		if !to.IsZero() && !ps.StartTime.Before(to) {
			continue
		}
		records = append(records, r.s.record(ps))
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].StartTime.Equal(records[j].StartTime) {
			return records[i].StartTime.After(records[j].StartTime)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (r *parkingSessionRepository) CountActiveByUser(ctx context.Context, userID int) (int, error) {
	defer r.s.lock(ctx)()
	n := 0
	for _, ps := range r.s.t.sessions {
		if ps.UserID == userID && ps.Status == domain.SessionActive {
			n++
		}
	}
	return n, nil
}
