package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type pgParkingSpotRepository struct {
	db *sql.DB
}

func NewPgParkingSpotRepository(db *sql.DB) repository.ParkingSpotRepository {
	return &pgParkingSpotRepository{db: db}
}

const spotColumns = `id, lot_id, spot_number, vehicle_id, created_at`

func scanSpot(row rowScanner, extra ...any) (*domain.ParkingSpot, error) {
	spot := &domain.ParkingSpot{}
	dest := append([]any{&spot.ID, &spot.LotID, &spot.SpotNumber, &spot.VehicleID, &spot.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	spot.CreatedAt = spot.CreatedAt.In(time.UTC)
	return spot, nil
}

func (r *pgParkingSpotRepository) CreateNumbers(ctx context.Context, lotID int, numbers []int) error {
	if len(numbers) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO parking_spots (lot_id, spot_number) VALUES `)
	args := make([]any, 0, len(numbers)+1)
	args = append(args, lotID)
	for i, n := range numbers {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($1, $" + strconv.Itoa(i+2) + ")")
		args = append(args, n)
	}
	if _, err := conn(ctx, r.db).ExecContext(ctx, sb.String(), args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: spot number already exists in lot %d", repository.ErrDuplicateEntry, lotID)
		}
		return fmt.Errorf("ParkingSpotRepository.CreateNumbers: %w", err)
	}
	return nil
}

func (r *pgParkingSpotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSpot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots WHERE id = $1`
	spot, err := scanSpot(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSpotRepository.FindByID: %w", err)
	}
	return spot, nil
}

func (r *pgParkingSpotRepository) FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots WHERE lot_id = $1 ORDER BY spot_number`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpotRepository.FindByLotID: %w", err)
	}
	defer rows.Close()

	spots := []domain.ParkingSpot{}
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingSpotRepository.FindByLotID (scanning row): %w", err)
		}
		spots = append(spots, *spot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSpotRepository.FindByLotID (rows error): %w", err)
	}
	return spots, nil
}

func (r *pgParkingSpotRepository) FindFirstAvailableByLotID(ctx context.Context, lotID int) (*domain.ParkingSpot, error) {
	// SKIP LOCKED lets concurrent auto-parks in the same lot pick different spots.
	query := `SELECT ` + spotColumns + ` FROM parking_spots
	           WHERE lot_id = $1 AND vehicle_id IS NULL
	           ORDER BY spot_number ASC LIMIT 1
	           FOR UPDATE SKIP LOCKED`
	spot, err := scanSpot(conn(ctx, r.db).QueryRowContext(ctx, query, lotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSpotRepository.FindFirstAvailableByLotID: %w", err)
	}
	return spot, nil
}

func (r *pgParkingSpotRepository) FindByVehicleIDForUpdate(ctx context.Context, vehicleID int) (*domain.ParkingSpot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots WHERE vehicle_id = $1 FOR UPDATE`
	spot, err := scanSpot(conn(ctx, r.db).QueryRowContext(ctx, query, vehicleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSpotRepository.FindByVehicleIDForUpdate: %w", err)
	}
	return spot, nil
}

func (r *pgParkingSpotRepository) Occupy(ctx context.Context, spotID, vehicleID int) error {
	query := `UPDATE parking_spots SET vehicle_id = $2 WHERE id = $1 AND vehicle_id IS NULL`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, spotID, vehicleID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: vehicle %d already occupies a spot", repository.ErrDuplicateEntry, vehicleID)
		}
		return fmt.Errorf("ParkingSpotRepository.Occupy: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSpotRepository.Occupy (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrStaleWrite
	}
	return nil
}

func (r *pgParkingSpotRepository) Release(ctx context.Context, spotID, vehicleID int) error {
	query := `UPDATE parking_spots SET vehicle_id = NULL WHERE id = $1 AND vehicle_id = $2`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, spotID, vehicleID)
	if err != nil {
		return fmt.Errorf("ParkingSpotRepository.Release: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSpotRepository.Release (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrStaleWrite
	}
	return nil
}

func (r *pgParkingSpotRepository) CountByLot(ctx context.Context, lotID int) (int, int, error) {
	var total, occupied int
	query := `SELECT COUNT(*), COUNT(vehicle_id) FROM parking_spots WHERE lot_id = $1`
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, lotID).Scan(&total, &occupied); err != nil {
		return 0, 0, fmt.Errorf("ParkingSpotRepository.CountByLot: %w", err)
	}
	return total, occupied, nil
}

func (r *pgParkingSpotRepository) DeleteHighestFree(ctx context.Context, lotID int, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	query := `DELETE FROM parking_spots WHERE id IN (
	              SELECT id FROM parking_spots
	              WHERE lot_id = $1 AND vehicle_id IS NULL
	              ORDER BY spot_number DESC LIMIT $2
	              FOR UPDATE)`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, lotID, n)
	if err != nil {
		return 0, fmt.Errorf("ParkingSpotRepository.DeleteHighestFree: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ParkingSpotRepository.DeleteHighestFree (checking rows affected): %w", err)
	}
	return int(rowsAffected), nil
}

func (r *pgParkingSpotRepository) DeleteByLot(ctx context.Context, lotID int) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM parking_spots WHERE lot_id = $1`, lotID); err != nil {
		return fmt.Errorf("ParkingSpotRepository.DeleteByLot: %w", err)
	}
	return nil
}

// Search matches lot names, exact spot numbers and the words "occupied"/"available".
func (r *pgParkingSpotRepository) Search(ctx context.Context, q string) ([]domain.SpotSearchResult, error) {
	term := strings.ToLower(strings.TrimSpace(q))
	number, numErr := strconv.Atoi(term)
	if numErr != nil {
		number = -1
	}
	query := `SELECT s.id, s.lot_id, s.spot_number, s.vehicle_id, s.created_at, l.name
	           FROM parking_spots s
	           JOIN parking_lots l ON l.id = s.lot_id
	           WHERE l.name ILIKE $1
	              OR s.spot_number = $2
	              OR ($3 = 'occupied' AND s.vehicle_id IS NOT NULL)
	              OR ($3 = 'available' AND s.vehicle_id IS NULL)
	           ORDER BY l.name, s.spot_number
	           LIMIT 200`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, "%"+term+"%", number, term)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpotRepository.Search: %w", err)
	}
	defer rows.Close()

	results := []domain.SpotSearchResult{}
	for rows.Next() {
		var lotName string
		spot, err := scanSpot(rows, &lotName)
		if err != nil {
			return nil, fmt.Errorf("ParkingSpotRepository.Search (scanning row): %w", err)
		}
		results = append(results, domain.NewSpotSearchResult(*spot, lotName))
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSpotRepository.Search (rows error): %w", err)
	}
	return results, nil
}
