package repository

import (
	"context"
	"errors"
	"time"

	"parkease/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")

// ErrStaleWrite is returned when a conditional update matched no row because
// the row no longer had the expected state.
var ErrStaleWrite = errors.New("row changed concurrently")

// Transactor runs fn in one database transaction. Repositories called with the
// ctx passed to fn join that transaction; nested calls reuse it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id int) error
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	Search(ctx context.Context, query string) ([]domain.User, error)
	// CurrentSpots maps user id to what that user occupies right now.
	CurrentSpots(ctx context.Context) (map[int][]domain.CurrentSpot, error)
}

type ParkingLotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	// FindByIDForUpdate locks the lot row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAllWithStats(ctx context.Context) ([]domain.LotWithStats, error)
	Search(ctx context.Context, query string) ([]domain.LotWithStats, error)
	Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	Delete(ctx context.Context, id int) error
}

type ParkingSpotRepository interface {
	CreateNumbers(ctx context.Context, lotID int, numbers []int) error
	FindByID(ctx context.Context, id int) (*domain.ParkingSpot, error)
	FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error)
	// FindFirstAvailableByLotID returns the lowest-numbered free spot and locks it.
	FindFirstAvailableByLotID(ctx context.Context, lotID int) (*domain.ParkingSpot, error)
	// FindByVehicleIDForUpdate returns the spot the vehicle occupies and locks it.
	FindByVehicleIDForUpdate(ctx context.Context, vehicleID int) (*domain.ParkingSpot, error)
	// Occupy sets the occupant only if the spot is free. ErrStaleWrite if it was
	// taken; ErrDuplicateEntry if the vehicle already occupies another spot.
	Occupy(ctx context.Context, spotID, vehicleID int) error
	// Release clears the occupant only if it is vehicleID. ErrStaleWrite otherwise.
	Release(ctx context.Context, spotID, vehicleID int) error
	CountByLot(ctx context.Context, lotID int) (total int, occupied int, err error)
	// DeleteHighestFree removes up to n free spots, highest numbers first.
	DeleteHighestFree(ctx context.Context, lotID int, n int) (int, error)
	DeleteByLot(ctx context.Context, lotID int) error
	Search(ctx context.Context, query string) ([]domain.SpotSearchResult, error)
}

type VehicleRepository interface {
	// FindOrCreateByPlate returns the vehicle with this plate, registering it to
	// userID when it does not exist yet. The caller checks ownership.
	FindOrCreateByPlate(ctx context.Context, userID int, plate string) (*domain.Vehicle, error)
	Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error)
	FindByID(ctx context.Context, id int) (*domain.Vehicle, error)
	FindByUserID(ctx context.Context, userID int) ([]domain.VehicleView, error)
}

type ParkingSessionRepository interface {
	Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingSession, error)
	// FindActive locks and returns the active session matching all four keys.
	FindActive(ctx context.Context, userID, vehicleID, lotID, spotID int) (*domain.ParkingSession, error)
	FindActiveBySpotID(ctx context.Context, spotID int) (*domain.ParkingSession, error)
	// Close writes end time, cost and status out only while the row is active.
	Close(ctx context.Context, id int, endTime time.Time, cost float64) error
	// FindRecordsByUser lists joined session rows whose start lies in [from, to),
	// newest first. Zero times leave that bound open.
	FindRecordsByUser(ctx context.Context, userID int, from, to time.Time) ([]domain.SessionRecord, error)
	CountActiveByUser(ctx context.Context, userID int) (int, error)
}

type AppConfigRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) (*domain.Job, error)
	FindByID(ctx context.Context, id string) (*domain.Job, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, filename, errMsg string) error
	// DeleteFinishedBefore removes finished jobs last updated before t and returns them.
	DeleteFinishedBefore(ctx context.Context, t time.Time) ([]domain.Job, error)
}

// ReportRepository is read-only.
type ReportRepository interface {
	RevenuePerLot(ctx context.Context) ([]domain.LotRevenue, error)
	OccupancyPerLot(ctx context.Context) ([]domain.LotOccupancy, error)
	// CompletedSessions lists closed sessions with end time in [from, to); lotID 0 means every lot.
	CompletedSessions(ctx context.Context, lotID int, from, to time.Time) ([]domain.SessionRecord, error)
	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
	CountLots(ctx context.Context) (int, error)
	// UsersWithoutSessionSince lists role=user accounts with no session started at or after since.
	UsersWithoutSessionSince(ctx context.Context, since time.Time) ([]domain.User, error)
	CountUsersWithSessionSince(ctx context.Context, since time.Time) (int, error)
	CountUsersWithActiveSession(ctx context.Context) (int, error)
	CountUsersByRole(ctx context.Context, role domain.Role) (int, error)
}
