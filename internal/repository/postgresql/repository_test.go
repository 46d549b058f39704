package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestOccupyIsConditional(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewPgParkingSpotRepository(db)
	occupy := `UPDATE parking_spots SET vehicle_id = \$2 WHERE id = \$1 AND vehicle_id IS NULL`

	mock.ExpectExec(occupy).WithArgs(4, 9).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Occupy(ctx, 4, 9))

	mock.ExpectExec(occupy).WithArgs(4, 10).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Occupy(ctx, 4, 10), repository.ErrStaleWrite)

	mock.ExpectExec(occupy).WithArgs(5, 9).WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "parking_spots_vehicle_id_key"})
	assert.ErrorIs(t, repo.Occupy(ctx, 5, 9), repository.ErrDuplicateEntry)
}

func TestReleaseRequiresCurrentOccupant(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgParkingSpotRepository(db)

	mock.ExpectExec(`UPDATE parking_spots SET vehicle_id = NULL WHERE id = \$1 AND vehicle_id = \$2`).
		WithArgs(4, 9).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Release(context.Background(), 4, 9), repository.ErrStaleWrite)
}

func TestUniqueViolationFromEitherDriver(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("23505")))
}

func TestSessionCloseOnlyWhileActive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgParkingSessionRepository(db)
	end := time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)
	closeQuery := `UPDATE parking_sessions SET end_time = \$2, cost = \$3, status = 'out'\s+WHERE id = \$1 AND status = 'active'`

	mock.ExpectExec(closeQuery).WithArgs(7, end, 40.0).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Close(context.Background(), 7, end, 40))

	mock.ExpectExec(closeQuery).WithArgs(7, end, 40.0).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Close(context.Background(), 7, end, 40), repository.ErrStaleWrite)
}

func TestTransactorCommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	tx := NewPgTransactor(db)
	spots := NewPgParkingSpotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE parking_spots SET vehicle_id = \$2`).WithArgs(1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return spots.Occupy(ctx, 1, 2)
	})
	assert.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE parking_spots SET vehicle_id = \$2`).WithArgs(1, 3).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	err = tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return spots.Occupy(ctx, 1, 3)
		})
	})
	assert.ErrorIs(t, err, repository.ErrStaleWrite)
}

func TestLotFindByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgParkingLotRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM parking_lots WHERE id = \$1`).WithArgs(3).WillReturnError(sql.ErrNoRows)
	_, err := repo.FindByID(context.Background(), 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRevenuePerLot(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgReportRepository(db)

	rows := sqlmock.NewRows([]string{"lot_id", "lot_name", "revenue", "completed_sessions", "in_progress"}).
		AddRow(1, "Central", 120.5, 4, 1).
		AddRow(2, "Mall", 0.0, 0, 2)
	mock.ExpectQuery(`FROM parking_lots l\s+LEFT JOIN parking_sessions ps`).WillReturnRows(rows)

	got, err := repo.RevenuePerLot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.LotRevenue{
		{LotID: 1, LotName: "Central", Revenue: 120.5, CompletedSessions: 4, InProgress: 1},
		{LotID: 2, LotName: "Mall", Revenue: 0, CompletedSessions: 0, InProgress: 2},
	}, got)
}

func TestDeleteFinishedJobs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgJobRepository(db)
	cutoff := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	updated := cutoff.Add(-time.Hour)

	rows := sqlmock.NewRows([]string{"id", "kind", "user_id", "format", "status", "filename", "error", "created_at", "updated_at"}).
		AddRow("0b6c9c52-43a4-4f7e-9d7c-8a1e2f3b4c5d", "export_history", 1, "csv", "succeeded", "user_1.csv", "", updated, updated)
	mock.ExpectQuery(`DELETE FROM jobs WHERE status IN \('succeeded', 'failed'\) AND updated_at < \$1`).
		WithArgs(cutoff).WillReturnRows(rows)

	jobs, err := repo.DeleteFinishedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobSucceeded, jobs[0].Status)
	assert.Equal(t, "user_1.csv", jobs[0].Filename)
}

func TestAppConfigGetMissingKey(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgAppConfigRepository(db)

	mock.ExpectQuery(`SELECT value FROM app_config WHERE key = \$1`).WithArgs("reminder_hour").WillReturnError(sql.ErrNoRows)
	_, err := repo.Get(context.Background(), "reminder_hour")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionCreateCopiesSpotNumber(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgParkingSessionRepository(db)
	start := time.Date(2024, 3, 15, 4, 30, 0, 0, time.UTC)
	insert := `INSERT INTO parking_sessions \(user_id, vehicle_id, lot_id, spot_id, spot_number, start_time, status\)\s+SELECT .+ s\.spot_number, .+ FROM parking_spots s WHERE s\.id = \$4`

	mock.ExpectQuery(insert).WithArgs(1, 7, 2, 9, start, domain.SessionActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "spot_number"}).AddRow(11, 3))
	session := &domain.ParkingSession{UserID: 1, VehicleID: 7, LotID: 2, SpotID: 9, StartTime: start, Status: domain.SessionActive}
	_, err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 11, session.ID)
	assert.Equal(t, 3, session.SpotNumber)

	mock.ExpectQuery(insert).WithArgs(1, 7, 2, 99, start, domain.SessionActive).WillReturnError(sql.ErrNoRows)
	_, err = repo.Create(context.Background(), &domain.ParkingSession{UserID: 1, VehicleID: 7, LotID: 2, SpotID: 99, StartTime: start, Status: domain.SessionActive})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionsOutliveRemovedSpots(t *testing.T) {
	var sessionsTable string
	for _, stmt := range schemaStatements {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS parking_sessions") {
			sessionsTable = stmt
		}
	}
	require.NotEmpty(t, sessionsTable)
	assert.Contains(t, sessionsTable, "spot_id INT REFERENCES parking_spots(id) ON DELETE SET NULL")
	assert.Contains(t, sessionsTable, "spot_number INT NOT NULL")
}
