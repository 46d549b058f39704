package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/domain"
)

func TestRegisterLoginValidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.auth.Register(ctx, domain.RegisterUserDTO{
		FullName: "Alice", Email: " Alice@Example.com ", Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, domain.RoleUser, resp.User.Role)
	assert.NotEmpty(t, resp.Token)

	principal, err := f.auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, principal.UserID)
	assert.Equal(t, domain.RoleUser, principal.Role)

	_, err = f.auth.Register(ctx, domain.RegisterUserDTO{FullName: "Alice 2", Email: "alice@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.auth.Register(ctx, domain.RegisterUserDTO{FullName: "Short", Email: "s@example.com", Password: "abc"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	login, err := f.auth.Login(ctx, domain.LoginUserDTO{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = f.auth.Login(ctx, domain.LoginUserDTO{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, domain.LoginUserDTO{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	resp, err := f.auth.Register(ctx, domain.RegisterUserDTO{FullName: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.auth.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := NewAuthService(f.users, "another-secret", time.Hour, f.auth.logger)
	_, err = other.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	f.clock.Advance(2 * time.Hour)
	_, err = f.auth.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "role": "admin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = f.auth.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.auth.SeedAdmin(ctx, "Admin@Example.com", "admin123", "Admin"))
	require.NoError(t, f.auth.SeedAdmin(ctx, "admin@example.com", "admin123", "Admin"))

	admins, err := f.users.ListByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)

	login, err := f.auth.Login(ctx, domain.LoginUserDTO{Email: "admin@example.com", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, login.User.Role)
}

func TestUpdateMe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")

	phone := "9999999999"
	updated, err := f.auth.UpdateMe(ctx, alice.ID, domain.UpdateProfileDTO{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)

	blank := "  "
	_, err = f.auth.UpdateMe(ctx, alice.ID, domain.UpdateProfileDTO{FullName: &blank})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.auth.UpdateMe(ctx, alice.ID, domain.UpdateProfileDTO{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.auth.Me(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
