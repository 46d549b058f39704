package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/domain"
)

func TestListUsersShowsCurrentSpots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	f.user(t, "bob@example.com")
	_, err := f.users.Create(ctx, &domain.User{FullName: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin})
	require.NoError(t, err)
	lot := f.lot(t, "Central", 10, 2)

	_, err = f.occupancy.Park(ctx, alice.ID, "MH12AB1234", f.spotNumbered(t, lot.ID, 2).ID)
	require.NoError(t, err)

	users, err := f.accounts.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Len(t, users[0].CurrentSpots, 1)
	assert.Equal(t, domain.CurrentSpot{SpotID: f.spotNumbered(t, lot.ID, 2).ID, SpotNumber: 2, LotName: "Central", LicensePlate: "MH12AB1234"},
		users[0].CurrentSpots[0])
	assert.NotNil(t, users[1].CurrentSpots)
	assert.Empty(t, users[1].CurrentSpots)

	found, err := f.accounts.SearchUsers(ctx, "BOB")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bob@example.com", found[0].Email)
}

func TestDeleteUserRefusedWhileParked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	lot := f.lot(t, "Central", 10, 1)

	parked, err := f.occupancy.Park(ctx, alice.ID, "MH12AB1234", f.spotNumbered(t, lot.ID, 1).ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.accounts.DeleteUser(ctx, alice.ID), ErrUserHasParkedVehicle)

	_, err = f.occupancy.Unpark(ctx, alice.ID, parked.VehicleID)
	require.NoError(t, err)
	require.NoError(t, f.accounts.DeleteUser(ctx, alice.ID))
	assert.ErrorIs(t, f.accounts.DeleteUser(ctx, alice.ID), ErrUserNotFound)
}

func TestAdminUpdateUserRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")

	admin := domain.RoleAdmin
	updated, err := f.accounts.UpdateUser(ctx, alice.ID, domain.AdminUpdateUserDTO{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, updated.Role)

	bogus := domain.Role("root")
	_, err = f.accounts.UpdateUser(ctx, alice.ID, domain.AdminUpdateUserDTO{Role: &bogus})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = f.accounts.UpdateUser(ctx, 999, domain.AdminUpdateUserDTO{Role: &admin})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterVehicle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")

	v, err := f.vehicleSv.Register(ctx, alice.ID, domain.RegisterVehicleDTO{LicensePlate: "mh 12 ab 1234"})
	require.NoError(t, err)
	assert.Equal(t, "MH12AB1234", v.LicensePlate)

	_, err = f.vehicleSv.Register(ctx, bob.ID, domain.RegisterVehicleDTO{LicensePlate: "MH12AB1234"})
	assert.ErrorIs(t, err, ErrPlateTaken)

	_, err = f.vehicleSv.Register(ctx, bob.ID, domain.RegisterVehicleDTO{LicensePlate: "   "})
	assert.ErrorIs(t, err, ErrInvalidPlate)

	views, err := f.vehicleSv.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].IsParked)
}
