package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/domain"
)

func TestParkAndUnparkBillsWholeHours(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	lot := f.lot(t, "Central", 20, 2)
	spot := f.spotNumbered(t, lot.ID, 1)

	parked, err := f.occupancy.Park(ctx, alice.ID, " mh12 ab1234 ", spot.ID)
	require.NoError(t, err)
	assert.Equal(t, "MH12AB1234", parked.LicensePlate)
	assert.Equal(t, 1, parked.SpotNumber)
	assert.Equal(t, "Central", parked.LotName)

	f.clock.Advance(90 * time.Minute)
	unparked, err := f.occupancy.Unpark(ctx, alice.ID, parked.VehicleID)
	require.NoError(t, err)
	assert.Equal(t, 2, unparked.Hours)
	assert.Equal(t, 40.0, unparked.Cost)
	assert.Equal(t, parked.SessionID, unparked.SessionID)

	sp, err := f.spots.FindByID(ctx, spot.ID)
	require.NoError(t, err)
	assert.False(t, sp.Occupied())

	session, err := f.sessions.FindByID(ctx, parked.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionOut, session.Status)
	assert.Equal(t, 40.0, session.Cost.Float64)

	require.Len(t, f.broadcaster.events, 2)
	assert.Equal(t, domain.EventSpotOccupied, f.broadcaster.events[0].Type)
	assert.Equal(t, domain.EventSpotReleased, f.broadcaster.events[1].Type)
	assert.Equal(t, spot.ID, f.broadcaster.events[0].SpotID)
	assert.Equal(t, "Central", f.broadcaster.events[0].LotName)
}

func TestParkUnparkParkKeepsBothSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	lot := f.lot(t, "Central", 10, 1)
	spot := f.spotNumbered(t, lot.ID, 1)

	first, err := f.occupancy.Park(ctx, alice.ID, "MH12AB1234", spot.ID)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Minute)
	_, err = f.occupancy.Unpark(ctx, alice.ID, first.VehicleID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	second, err := f.occupancy.Park(ctx, alice.ID, "MH12AB1234", spot.ID)
	require.NoError(t, err)
	assert.Equal(t, first.VehicleID, second.VehicleID)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	records, err := f.sessions.FindRecordsByUser(ctx, alice.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.SessionActive, records[0].Status)
	assert.Equal(t, domain.SessionOut, records[1].Status)
}

func TestParkRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	lot := f.lot(t, "Central", 10, 2)
	one := f.spotNumbered(t, lot.ID, 1)
	two := f.spotNumbered(t, lot.ID, 2)

	_, err := f.occupancy.Park(ctx, alice.ID, "", one.ID)
	assert.ErrorIs(t, err, ErrInvalidParkRequest)

	_, err = f.occupancy.Park(ctx, alice.ID, "MH12AB1234", 999)
	assert.ErrorIs(t, err, ErrSpotNotFound)

	_, err = f.occupancy.Park(ctx, alice.ID, "MH12AB1234", one.ID)
	require.NoError(t, err)

	_, err = f.occupancy.Park(ctx, alice.ID, "MH12AB1234", two.ID)
	assert.ErrorIs(t, err, ErrVehicleAlreadyParked)

	_, err = f.occupancy.Park(ctx, bob.ID, "KA01XY0001", one.ID)
	assert.ErrorIs(t, err, ErrSpotOccupied)

	_, err = f.occupancy.Park(ctx, bob.ID, "MH12AB1234", two.ID)
	assert.ErrorIs(t, err, ErrVehicleOwnedByOther)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestConcurrentParkOnOneSpot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lot := f.lot(t, "Central", 10, 1)
	spot := f.spotNumbered(t, lot.ID, 1)

	const contenders = 8
	users := make([]*domain.User, contenders)
	for i := range users {
		users[i] = f.user(t, fmt.Sprintf("driver%d@example.com", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.occupancy.Park(ctx, users[i].ID, fmt.Sprintf("MH12AB%04d", i), spot.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrSpotOccupied)
	}
	assert.Equal(t, 1, wins)

	_, occupied, err := f.spots.CountByLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, occupied)
}

func TestAutoParkPicksLowestFreeSpot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	lot := f.lot(t, "Central", 10, 3)

	_, err := f.occupancy.Park(ctx, alice.ID, "MH12AB1234", f.spotNumbered(t, lot.ID, 1).ID)
	require.NoError(t, err)

	van, err := f.vehicleSv.Register(ctx, bob.ID, domain.RegisterVehicleDTO{LicensePlate: "KA01XY0001"})
	require.NoError(t, err)
	parked, err := f.occupancy.AutoPark(ctx, bob.ID, van.ID, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, parked.SpotNumber)

	_, err = f.occupancy.AutoPark(ctx, bob.ID, van.ID, lot.ID)
	assert.ErrorIs(t, err, ErrVehicleAlreadyParked)

	_, err = f.occupancy.AutoPark(ctx, alice.ID, van.ID, lot.ID)
	assert.ErrorIs(t, err, ErrVehicleNotFound)

	car, err := f.vehicleSv.Register(ctx, bob.ID, domain.RegisterVehicleDTO{LicensePlate: "KA01XY0002"})
	require.NoError(t, err)
	_, err = f.occupancy.AutoPark(ctx, bob.ID, car.ID, lot.ID)
	require.NoError(t, err)

	bike, err := f.vehicleSv.Register(ctx, bob.ID, domain.RegisterVehicleDTO{LicensePlate: "KA01XY0003"})
	require.NoError(t, err)
	_, err = f.occupancy.AutoPark(ctx, bob.ID, bike.ID, lot.ID)
	assert.ErrorIs(t, err, ErrNoAvailableSpot)

	_, err = f.occupancy.AutoPark(ctx, bob.ID, bike.ID, 999)
	assert.ErrorIs(t, err, ErrLotNotFound)
}

func TestUnparkRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	lot := f.lot(t, "Central", 10, 2)

	parked, err := f.occupancy.Park(ctx, alice.ID, "MH12AB1234", f.spotNumbered(t, lot.ID, 1).ID)
	require.NoError(t, err)

	_, err = f.occupancy.Unpark(ctx, bob.ID, parked.VehicleID)
	assert.ErrorIs(t, err, ErrVehicleNotFound)

	idle, err := f.vehicleSv.Register(ctx, alice.ID, domain.RegisterVehicleDTO{LicensePlate: "MH12AB0002"})
	require.NoError(t, err)
	_, err = f.occupancy.Unpark(ctx, alice.ID, idle.ID)
	assert.ErrorIs(t, err, ErrVehicleNotParked)

	_, err = f.occupancy.Unpark(ctx, alice.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidVehicleID)
}

func TestUnparkWithoutActiveSessionLeavesSpotHeld(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	lot := f.lot(t, "Central", 10, 1)
	spot := f.spotNumbered(t, lot.ID, 1)

	vehicle, err := f.vehicleSv.Register(ctx, alice.ID, domain.RegisterVehicleDTO{LicensePlate: "MH12AB1234"})
	require.NoError(t, err)
	require.NoError(t, f.spots.Occupy(ctx, spot.ID, vehicle.ID))

	_, err = f.occupancy.Unpark(ctx, alice.ID, vehicle.ID)
	assert.ErrorIs(t, err, ErrActiveSessionMissing)
	assert.ErrorIs(t, err, ErrInconsistent)

	sp, err := f.spots.FindByID(ctx, spot.ID)
	require.NoError(t, err)
	assert.True(t, sp.Occupied())
}
