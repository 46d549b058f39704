package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

func spotNumbers(spots []domain.ParkingSpot) []int {
	out := make([]int, 0, len(spots))
	for _, sp := range spots {
		out = append(out, sp.SpotNumber)
	}
	return out
}

func TestCreateLotValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name string
		dto  domain.CreateParkingLotDTO
	}{
		{"missing name", domain.CreateParkingLotDTO{Address: "a", Pincode: "1", PricePerHour: 10}},
		{"zero price", domain.CreateParkingLotDTO{Name: "n", Address: "a", Pincode: "1"}},
		{"negative capacity", domain.CreateParkingLotDTO{Name: "n", Address: "a", Pincode: "1", PricePerHour: 10, MaxSpots: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.inventory.CreateLot(ctx, tt.dto)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	lot := f.lot(t, "Central", 10, 3)
	spots, err := f.inventory.ListSpots(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, spotNumbers(spots))
}

func TestUpdateLotReconcilesCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	lot := f.lot(t, "Central", 10, 4)

	_, err := f.occupancy.Park(ctx, alice.ID, "MH12AB1234", f.spotNumbered(t, lot.ID, 3).ID)
	require.NoError(t, err)

	two := 2
	updated, err := f.inventory.UpdateLot(ctx, lot.ID, domain.UpdateParkingLotDTO{MaxSpots: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MaxSpots)

	spots, err := f.spots.FindByLotID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, spotNumbers(spots), "occupied spot 3 survives, free 4 and 2 go")

	zero := 0
	_, err = f.inventory.UpdateLot(ctx, lot.ID, domain.UpdateParkingLotDTO{MaxSpots: &zero})
	assert.ErrorIs(t, err, ErrConflict)

	spots, err = f.spots.FindByLotID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Len(t, spots, 2, "rejected shrink changes nothing")

	five := 5
	_, err = f.inventory.UpdateLot(ctx, lot.ID, domain.UpdateParkingLotDTO{MaxSpots: &five})
	require.NoError(t, err)
	spots, err = f.spots.FindByLotID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, spotNumbers(spots))

	_, err = f.inventory.UpdateLot(ctx, lot.ID, domain.UpdateParkingLotDTO{})
	assert.ErrorIs(t, err, ErrNoLotChanges)

	_, err = f.inventory.UpdateLot(ctx, 999, domain.UpdateParkingLotDTO{MaxSpots: &five})
	assert.ErrorIs(t, err, ErrLotNotFound)
}

func TestListLotsReflectsOccupancyAfterPark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	lot := f.lot(t, "Central", 10, 2)

	lots, err := f.inventory.ListLots(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, 2, lots[0].AvailableSpots)

	_, err = f.occupancy.Park(ctx, alice.ID, "MH12AB1234", f.spotNumbered(t, lot.ID, 1).ID)
	require.NoError(t, err)

	lots, err = f.inventory.ListLots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, lots[0].OccupiedSpots)
	assert.Equal(t, 1, lots[0].AvailableSpots)
}

func TestDeleteLot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	lot := f.lot(t, "Central", 10, 2)

	parked, err := f.occupancy.Park(ctx, alice.ID, "MH12AB1234", f.spotNumbered(t, lot.ID, 1).ID)
	require.NoError(t, err)

	err = f.inventory.DeleteLot(ctx, lot.ID)
	assert.ErrorIs(t, err, ErrLotHasOccupiedSpots)

	_, err = f.occupancy.Unpark(ctx, alice.ID, parked.VehicleID)
	require.NoError(t, err)
	require.NoError(t, f.inventory.DeleteLot(ctx, lot.ID))

	_, err = f.inventory.GetLot(ctx, lot.ID)
	assert.ErrorIs(t, err, ErrLotNotFound)
	assert.ErrorIs(t, f.inventory.DeleteLot(ctx, lot.ID), ErrLotNotFound)
}

func TestSpotDetailsEstimatesRunningCost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	lot := f.lot(t, "Central", 25, 1)
	spot := f.spotNumbered(t, lot.ID, 1)

	details, err := f.inventory.SpotDetails(ctx, spot.ID)
	require.NoError(t, err)
	assert.Nil(t, details.Vehicle)

	_, err = f.occupancy.Park(ctx, alice.ID, "MH12AB1234", spot.ID)
	require.NoError(t, err)
	f.clock.Advance(2*time.Hour + time.Minute)

	details, err = f.inventory.SpotDetails(ctx, spot.ID)
	require.NoError(t, err)
	require.NotNil(t, details.Vehicle)
	assert.Equal(t, "MH12AB1234", details.Vehicle.LicensePlate)
	require.NotNil(t, details.Owner)
	assert.Equal(t, alice.ID, details.Owner.ID)
	assert.True(t, details.StartTime.Valid)
	assert.Equal(t, 75.0, details.EstimatedCost)

	_, err = f.inventory.SpotDetails(ctx, 999)
	assert.ErrorIs(t, err, ErrSpotNotFound)
}

func TestShrinkKeepsClosedSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	lot := f.lot(t, "Central", 50, 3)
	spot3 := f.spotNumbered(t, lot.ID, 3)

	parked, err := f.occupancy.Park(ctx, alice.ID, "MH12AB1234", spot3.ID)
	require.NoError(t, err)
	f.clock.Advance(30 * time.Minute)
	_, err = f.occupancy.Unpark(ctx, alice.ID, parked.VehicleID)
	require.NoError(t, err)

	two := 2
	_, err = f.inventory.UpdateLot(ctx, lot.ID, domain.UpdateParkingLotDTO{MaxSpots: &two})
	require.NoError(t, err)
	_, err = f.spots.FindByID(ctx, spot3.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	session, err := f.sessions.FindByID(ctx, parked.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionOut, session.Status)
	assert.Equal(t, 0, session.SpotID)
	assert.Equal(t, 3, session.SpotNumber)

	summary, err := f.reports.RevenueSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50.0, summary.TotalRevenue)

	history, err := f.reports.History(ctx, alice.ID, domain.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 3, history[0].SpotNumber)
	assert.Equal(t, 50.0, history[0].Cost.Float64)
}
