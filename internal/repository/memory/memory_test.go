package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

func TestOccupyEnforcesSingleOccupancy(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	lots, spots, vehicles := NewParkingLotRepository(s), NewParkingSpotRepository(s), NewVehicleRepository(s)

	lot, err := lots.Create(ctx, &domain.ParkingLot{Name: "Central", PricePerHour: 20, MaxSpots: 2})
	require.NoError(t, err)
	require.NoError(t, spots.CreateNumbers(ctx, lot.ID, []int{1, 2}))
	v1, _ := vehicles.FindOrCreateByPlate(ctx, 1, "MH12AB1234")
	v2, _ := vehicles.FindOrCreateByPlate(ctx, 1, "MH12AB9999")

	first, err := spots.FindFirstAvailableByLotID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.SpotNumber)

	require.NoError(t, spots.Occupy(ctx, first.ID, v1.ID))
	assert.ErrorIs(t, spots.Occupy(ctx, first.ID, v2.ID), repository.ErrStaleWrite)

	second, err := spots.FindFirstAvailableByLotID(ctx, lot.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, spots.Occupy(ctx, second.ID, v1.ID), repository.ErrDuplicateEntry)

	assert.ErrorIs(t, spots.Release(ctx, first.ID, v2.ID), repository.ErrStaleWrite)
	require.NoError(t, spots.Release(ctx, first.ID, v1.ID))

	total, occupied, err := spots.CountByLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, occupied)
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	lots := NewParkingLotRepository(s)
	boom := errors.New("boom")

	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := lots.Create(ctx, &domain.ParkingLot{Name: "Temp"}); err != nil {
			return err
		}
		return s.WithinTransaction(ctx, func(ctx context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	all, err := lots.FindAllWithStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSessionCloseIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sessions := NewParkingSessionRepository(s)
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	lot, err := NewParkingLotRepository(s).Create(ctx, &domain.ParkingLot{Name: "Central", PricePerHour: 20, MaxSpots: 2})
	require.NoError(t, err)
	require.NoError(t, NewParkingSpotRepository(s).CreateNumbers(ctx, lot.ID, []int{1, 2}))

	ps, err := sessions.Create(ctx, &domain.ParkingSession{UserID: 1, VehicleID: 7, LotID: 1, SpotID: 1, StartTime: start, Status: domain.SessionActive})
	require.NoError(t, err)
	_, err = sessions.Create(ctx, &domain.ParkingSession{UserID: 1, VehicleID: 7, LotID: 1, SpotID: 2, StartTime: start, Status: domain.SessionActive})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	require.NoError(t, sessions.Close(ctx, ps.ID, start.Add(time.Hour), 20))
	assert.ErrorIs(t, sessions.Close(ctx, ps.ID, start.Add(2*time.Hour), 40), repository.ErrStaleWrite)

	closed, err := sessions.FindByID(ctx, ps.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, closed.Cost.Float64)
	assert.Equal(t, domain.SessionOut, closed.Status)
}

func TestRemovingSpotDetachesClosedSessions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	spots := NewParkingSpotRepository(s)
	sessions := NewParkingSessionRepository(s)
	lot, err := NewParkingLotRepository(s).Create(ctx, &domain.ParkingLot{Name: "Central", PricePerHour: 20, MaxSpots: 3})
	require.NoError(t, err)
	require.NoError(t, spots.CreateNumbers(ctx, lot.ID, []int{1, 2, 3}))
	highest, err := spots.FindByLotID(ctx, lot.ID)
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ps, err := sessions.Create(ctx, &domain.ParkingSession{UserID: 1, VehicleID: 7, LotID: lot.ID, SpotID: highest[2].ID, StartTime: start, Status: domain.SessionActive})
	require.NoError(t, err)
	assert.Equal(t, 3, ps.SpotNumber)
	require.NoError(t, sessions.Close(ctx, ps.ID, start.Add(time.Hour), 20))

	removed, err := spots.DeleteHighestFree(ctx, lot.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	kept, err := sessions.FindByID(ctx, ps.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, kept.SpotID)
	assert.Equal(t, 3, kept.SpotNumber)
	assert.Equal(t, 20.0, kept.Cost.Float64)
}
