package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type pgParkingSessionRepository struct {
	db *sql.DB
}

func NewPgParkingSessionRepository(db *sql.DB) repository.ParkingSessionRepository {
	return &pgParkingSessionRepository{db: db}
}

const sessionColumns = `id, user_id, vehicle_id, lot_id, COALESCE(spot_id, 0), spot_number, start_time, end_time, cost, status`

func scanSession(row rowScanner) (*domain.ParkingSession, error) {
	s := &domain.ParkingSession{}
	if err := row.Scan(&s.ID, &s.UserID, &s.VehicleID, &s.LotID, &s.SpotID, &s.SpotNumber,
		&s.StartTime, &s.EndTime, &s.Cost, &s.Status); err != nil {
		return nil, err
	}
	s.StartTime = s.StartTime.In(time.UTC)
	if s.EndTime.Valid {
		s.EndTime.Time = s.EndTime.Time.In(time.UTC)
	}
	return s, nil
}

func (r *pgParkingSessionRepository) Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	query := `INSERT INTO parking_sessions (user_id, vehicle_id, lot_id, spot_id, spot_number, start_time, status)
	           SELECT $1::int, $2::int, $3::int, s.id, s.spot_number, $5::timestamptz, $6::text FROM parking_spots s WHERE s.id = $4
	           RETURNING id, spot_number`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, session.UserID, session.VehicleID, session.LotID,
		session.SpotID, session.StartTime, session.Status).Scan(&session.ID, &session.SpotNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ParkingSessionRepository.Create: spot %d: %w", session.SpotID, repository.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: vehicle %d already has an active session", repository.ErrDuplicateEntry, session.VehicleID)
		}
		return nil, fmt.Errorf("ParkingSessionRepository.Create: %w", err)
	}
	return session, nil
}

func (r *pgParkingSessionRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	return r.findOne(ctx, "FindByID", query, id)
}

func (r *pgParkingSessionRepository) FindActive(ctx context.Context, userID, vehicleID, lotID, spotID int) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
	           WHERE user_id = $1 AND vehicle_id = $2 AND lot_id = $3 AND spot_id = $4 AND status = 'active'
	           FOR UPDATE`
	return r.findOne(ctx, "FindActive", query, userID, vehicleID, lotID, spotID)
}

func (r *pgParkingSessionRepository) FindActiveBySpotID(ctx context.Context, spotID int) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
	           WHERE spot_id = $1 AND status = 'active'
	           ORDER BY start_time DESC LIMIT 1`
	return r.findOne(ctx, "FindActiveBySpotID", query, spotID)
}

func (r *pgParkingSessionRepository) findOne(ctx context.Context, op, query string, args ...any) (*domain.ParkingSession, error) {
	session, err := scanSession(conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.%s: %w", op, err)
	}
	return session, nil
}

func (r *pgParkingSessionRepository) Close(ctx context.Context, id int, endTime time.Time, cost float64) error {
	query := `UPDATE parking_sessions SET end_time = $2, cost = $3, status = 'out'
	           WHERE id = $1 AND status = 'active'`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, endTime, cost)
	if err != nil {
		return fmt.Errorf("ParkingSessionRepository.Close: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSessionRepository.Close (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrStaleWrite
	}
	return nil
}

const sessionRecordQuery = `SELECT ps.id, ps.user_id, ps.vehicle_id, v.license_plate, ps.lot_id, l.name, l.address, l.pincode,
	       l.price_per_hour, COALESCE(ps.spot_id, 0), ps.spot_number, ps.start_time, ps.end_time, ps.cost, ps.status
	FROM parking_sessions ps
	JOIN vehicles v ON v.id = ps.vehicle_id
	JOIN parking_lots l ON l.id = ps.lot_id`

func scanSessionRecord(row rowScanner) (*domain.SessionRecord, error) {
	rec := &domain.SessionRecord{}
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.VehicleID, &rec.LicensePlate, &rec.LotID, &rec.LotName,
		&rec.LotAddress, &rec.LotPincode, &rec.PricePerHour, &rec.SpotID, &rec.SpotNumber,
		&rec.StartTime, &rec.EndTime, &rec.Cost, &rec.Status); err != nil {
		return nil, err
	}
	rec.StartTime = rec.StartTime.In(time.UTC)
	if rec.EndTime.Valid {
		rec.EndTime.Time = rec.EndTime.Time.In(time.UTC)
	}
	return rec, nil
}

func (r *pgParkingSessionRepository) FindRecordsByUser(ctx context.Context, userID int, from, to time.Time) ([]domain.SessionRecord, error) {
	conditions := []string{"ps.user_id = $1"}
	args := []any{userID}
	argID := 2

	if !from.IsZero() {
		conditions = append(conditions, fmt.Sprintf("ps.start_time >= $%d", argID))
		args = append(args, from)
		argID++
	}
	if !to.IsZero() {
		conditions = append(conditions, fmt.Sprintf("ps.start_time < $%d", argID))
		args = append(args, to)
	}

	query := sessionRecordQuery + " WHERE " + strings.Join(conditions, " AND ") + " ORDER BY ps.start_time DESC, ps.id DESC"

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.FindRecordsByUser: %w", err)
	}
	defer rows.Close()

	records := []domain.SessionRecord{}
	for rows.Next() {
		rec, err := scanSessionRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingSessionRepository.FindRecordsByUser (scanning row): %w", err)
		}
		records = append(records, *rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.FindRecordsByUser (rows error): %w", err)
	}
	return records, nil
}

func (r *pgParkingSessionRepository) CountActiveByUser(ctx context.Context, userID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM parking_sessions WHERE user_id = $1 AND status = 'active'`
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("ParkingSessionRepository.CountActiveByUser: %w", err)
	}
	return count, nil
}
