// Package memory is an in-process implementation of the repository
// interfaces with the same occupancy constraints as the Postgres schema.
// Transactions serialize on one mutex and roll back by restoring a snapshot.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"parkease/internal/domain"
)

type txKey struct{}

type tables struct {
	users    map[int]domain.User
	lots     map[int]domain.ParkingLot
	spots    map[int]domain.ParkingSpot
	vehicles map[int]domain.Vehicle
	sessions map[int]domain.ParkingSession
	config   map[string]string
	jobs     map[string]domain.Job
	seq      map[string]int
}

func (t tables) clone() tables {
	return tables{
		users:    maps.Clone(t.users),
		lots:     maps.Clone(t.lots),
		spots:    maps.Clone(t.spots),
		vehicles: maps.Clone(t.vehicles),
		sessions: maps.Clone(t.sessions),
		config:   maps.Clone(t.config),
		jobs:     maps.Clone(t.jobs),
		seq:      maps.Clone(t.seq),
	}
}

type Store struct {
	mu  sync.Mutex
	t   tables
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		t: tables{
			users:    map[int]domain.User{},
			lots:     map[int]domain.ParkingLot{},
			spots:    map[int]domain.ParkingSpot{},
			vehicles: map[int]domain.Vehicle{},
			sessions: map[int]domain.ParkingSession{},
			config:   map[string]string{},
			jobs:     map[string]domain.Job{},
			seq:      map[string]int{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for created_at/updated_at columns.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// lock takes the store mutex unless ctx already runs inside a transaction,
// which holds it.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) nextID(table string) int {
	s.t.seq[table]++
	return s.t.seq[table]
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.t = snapshot
		return err
	}
	return nil
}

// spotOf returns the spot that references vehicleID. Callers hold the lock.
func (s *Store) spotOf(vehicleID int) (domain.ParkingSpot, bool) {
	for _, sp := range s.t.spots {
		if sp.VehicleID.Valid && int(sp.VehicleID.Int64) == vehicleID {
			return sp, true
		}
	}
	return domain.ParkingSpot{}, false
}

// record joins a session with its vehicle, lot and spot. Callers hold the lock.
func (s *Store) record(ps domain.ParkingSession) domain.SessionRecord {
	lot := s.t.lots[ps.LotID]
	return domain.SessionRecord{
		ID:           ps.ID,
		UserID:       ps.UserID,
		VehicleID:    ps.VehicleID,
		LicensePlate: s.t.vehicles[ps.VehicleID].LicensePlate,
		LotID:        ps.LotID,
		LotName:      lot.Name,
		LotAddress:   lot.Address,
		LotPincode:   lot.Pincode,
		PricePerHour: lot.PricePerHour,
		SpotID:       ps.SpotID,
		SpotNumber:   ps.SpotNumber,
		StartTime:    ps.StartTime,
		EndTime:      ps.EndTime,
		Cost:         ps.Cost,
		Status:       ps.Status,
	}
}
