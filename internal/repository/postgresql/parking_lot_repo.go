package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type pgParkingLotRepository struct {
	db *sql.DB
}

func NewPgParkingLotRepository(db *sql.DB) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

const lotColumns = `id, name, address, pincode, price_per_hour, max_spots, created_at, updated_at`

func scanLot(row rowScanner, extra ...any) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	dest := append([]any{&lot.ID, &lot.Name, &lot.Address, &lot.Pincode, &lot.PricePerHour,
		&lot.MaxSpots, &lot.CreatedAt, &lot.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	query := `INSERT INTO parking_lots (name, address, pincode, price_per_hour, max_spots)
	           VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, lot.Name, lot.Address, lot.Pincode,
		lot.PricePerHour, lot.MaxSpots).Scan(&lot.ID, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.Create: %w", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return r.findByID(ctx, "FindByID", `SELECT `+lotColumns+` FROM parking_lots WHERE id = $1`, id)
}

func (r *pgParkingLotRepository) FindByIDForUpdate(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return r.findByID(ctx, "FindByIDForUpdate", `SELECT `+lotColumns+` FROM parking_lots WHERE id = $1 FOR UPDATE`, id)
}

func (r *pgParkingLotRepository) findByID(ctx context.Context, op, query string, id int) (*domain.ParkingLot, error) {
	lot, err := scanLot(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.%s: %w", op, err)
	}
	return lot, nil
}

const lotStatsQuery = `SELECT l.id, l.name, l.address, l.pincode, l.price_per_hour, l.max_spots, l.created_at, l.updated_at,
	       COUNT(s.id) AS total_spots,
	       COUNT(s.vehicle_id) AS occupied_spots
	FROM parking_lots l
	LEFT JOIN parking_spots s ON s.lot_id = l.id`

func (r *pgParkingLotRepository) FindAllWithStats(ctx context.Context) ([]domain.LotWithStats, error) {
	query := lotStatsQuery + ` GROUP BY l.id ORDER BY l.name, l.id`
	return r.listWithStats(ctx, "FindAllWithStats", query)
}

func (r *pgParkingLotRepository) Search(ctx context.Context, q string) ([]domain.LotWithStats, error) {
	query := lotStatsQuery + `
	WHERE l.name ILIKE $1 OR l.address ILIKE $1 OR l.pincode ILIKE $1
	GROUP BY l.id ORDER BY l.name, l.id`
	return r.listWithStats(ctx, "Search", query, "%"+q+"%")
}

func (r *pgParkingLotRepository) listWithStats(ctx context.Context, op, query string, args ...any) ([]domain.LotWithStats, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.%s: %w", op, err)
	}
	defer rows.Close()

	lots := []domain.LotWithStats{}
	for rows.Next() {
		var total, occupied int
		lot, err := scanLot(rows, &total, &occupied)
		if err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.%s (scanning row): %w", op, err)
		}
		lots = append(lots, domain.LotWithStats{
			ParkingLot:     *lot,
			TotalSpots:     total,
			OccupiedSpots:  occupied,
			AvailableSpots: total - occupied,
		})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.%s (rows error): %w", op, err)
	}
	return lots, nil
}

func (r *pgParkingLotRepository) Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	query := `UPDATE parking_lots
	           SET name = $1, address = $2, pincode = $3, price_per_hour = $4, max_spots = $5, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $6 RETURNING updated_at`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, lot.Name, lot.Address, lot.Pincode,
		lot.PricePerHour, lot.MaxSpots, lot.ID).Scan(&lot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.Update: %w", err)
	}
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) Delete(ctx context.Context, id int) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM parking_lots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
