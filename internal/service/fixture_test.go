package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parkease/internal/cache"
	"parkease/internal/domain"
	"parkease/internal/logging"
	"parkease/internal/queue"
	"parkease/internal/repository"
	"parkease/internal/repository/memory"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.OccupancyEvent
}

func (b *recordingBroadcaster) BroadcastOccupancy(event domain.OccupancyEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

type recordingPublisher struct {
	mu    sync.Mutex
	tasks []queue.Task
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, task queue.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, task)
	return nil
}

type fixture struct {
	store       *memory.Store
	clock       *testClock
	users       repository.UserRepository
	lots        repository.ParkingLotRepository
	spots       repository.ParkingSpotRepository
	vehicles    repository.VehicleRepository
	sessions    repository.ParkingSessionRepository
	jobs        repository.JobRepository
	broadcaster *recordingBroadcaster
	publisher   *recordingPublisher

	occupancy *OccupancyService
	inventory *InventoryService
	reports   *ReportService
	settings  *SettingsService
	auth      *AuthService
	accounts  *UserService
	vehicleSv *VehicleService
	exports   *ExportService
	notices   *NotificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.Discard()
	store := memory.NewStore()
	clock := &testClock{t: time.Date(2024, 3, 15, 4, 30, 0, 0, time.UTC)}
	store.SetClock(clock.Now)

	f := &fixture{
		store:       store,
		clock:       clock,
		users:       memory.NewUserRepository(store),
		lots:        memory.NewParkingLotRepository(store),
		spots:       memory.NewParkingSpotRepository(store),
		vehicles:    memory.NewVehicleRepository(store),
		sessions:    memory.NewParkingSessionRepository(store),
		jobs:        memory.NewJobRepository(store),
		broadcaster: &recordingBroadcaster{},
		publisher:   &recordingPublisher{},
	}
	responseCache := cache.New(time.Minute)
	ttls := CacheTTLs{Lots: time.Minute, History: time.Minute, Summary: time.Minute}

	f.settings = NewSettingsService(memory.NewAppConfigRepository(store), 18, 0, logger)
	f.occupancy = NewOccupancyService(store, f.lots, f.spots, f.vehicles, f.sessions, responseCache, f.broadcaster, logger)
	f.occupancy.SetClock(clock.Now)
	f.inventory = NewInventoryService(store, f.lots, f.spots, f.vehicles, f.users, f.sessions, responseCache, ttls, logger)
	f.inventory.SetClock(clock.Now)
	f.reports = NewReportService(memory.NewReportRepository(store), f.sessions, f.users, f.settings, responseCache, ttls, ist, logger)
	f.reports.SetClock(clock.Now)
	f.auth = NewAuthService(f.users, "test-secret", time.Hour, logger)
	f.auth.now = clock.Now
	f.accounts = NewUserService(f.users, f.sessions, logger)
	f.vehicleSv = NewVehicleService(f.vehicles, responseCache, ttls, logger)
	f.exports = NewExportService(f.jobs, f.publisher, t.TempDir(), logger)
	f.notices = NewNotificationService(f.publisher, f.settings, ist, logger)
	f.notices.SetClock(clock.Now)
	return f
}

func (f *fixture) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), &domain.User{FullName: "Test " + email, Email: email, Role: domain.RoleUser})
	require.NoError(t, err)
	return u
}

func (f *fixture) lot(t *testing.T, name string, price float64, spots int) *domain.ParkingLot {
	t.Helper()
	lot, err := f.inventory.CreateLot(context.Background(), domain.CreateParkingLotDTO{
		Name: name, Address: "1 Main Road", Pincode: "411001", PricePerHour: price, MaxSpots: spots,
	})
	require.NoError(t, err)
	return lot
}

func (f *fixture) spotNumbered(t *testing.T, lotID, number int) domain.ParkingSpot {
	t.Helper()
	spots, err := f.spots.FindByLotID(context.Background(), lotID)
	require.NoError(t, err)
	for _, sp := range spots {
		if sp.SpotNumber == number {
			return sp
		}
	}
	t.Fatalf("lot %d has no spot %d", lotID, number)
	return domain.ParkingSpot{}
}
