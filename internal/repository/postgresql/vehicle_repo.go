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

type pgVehicleRepository struct {
	db *sql.DB
}

func NewPgVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &pgVehicleRepository{db: db}
}

func (r *pgVehicleRepository) FindOrCreateByPlate(ctx context.Context, userID int, plate string) (*domain.Vehicle, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	query := `INSERT INTO vehicles (user_id, license_plate) VALUES ($1, $2)
	           ON CONFLICT (license_plate) DO UPDATE SET license_plate = EXCLUDED.license_plate
	           RETURNING id, user_id, license_plate, created_at,
	                     (SELECT s.id FROM parking_spots s WHERE s.vehicle_id = vehicles.id)`
	v := &domain.Vehicle{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, userID, plate).
		Scan(&v.ID, &v.UserID, &v.LicensePlate, &v.CreatedAt, &v.SpotID)
	if err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindOrCreateByPlate: %w", err)
	}
	v.CreatedAt = v.CreatedAt.In(time.UTC)
	return v, nil
}

func (r *pgVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	query := `INSERT INTO vehicles (user_id, license_plate) VALUES ($1, $2) RETURNING id, created_at`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, vehicle.UserID, vehicle.LicensePlate).
		Scan(&vehicle.ID, &vehicle.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: vehicle '%s' is already registered", repository.ErrDuplicateEntry, vehicle.LicensePlate)
		}
		return nil, fmt.Errorf("VehicleRepository.Create: %w", err)
	}
	vehicle.CreatedAt = vehicle.CreatedAt.In(time.UTC)
	return vehicle, nil
}

func (r *pgVehicleRepository) FindByID(ctx context.Context, id int) (*domain.Vehicle, error) {
	query := `SELECT v.id, v.user_id, v.license_plate, v.created_at, s.id
	           FROM vehicles v
	           LEFT JOIN parking_spots s ON s.vehicle_id = v.id
	           WHERE v.id = $1`
	v := &domain.Vehicle{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).
		Scan(&v.ID, &v.UserID, &v.LicensePlate, &v.CreatedAt, &v.SpotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("VehicleRepository.FindByID: %w", err)
	}
	v.CreatedAt = v.CreatedAt.In(time.UTC)
	return v, nil
}

func (r *pgVehicleRepository) FindByUserID(ctx context.Context, userID int) ([]domain.VehicleView, error) {
	query := `SELECT v.id, v.user_id, v.license_plate, v.created_at, s.id, s.spot_number, l.id, l.name
	           FROM vehicles v
	           LEFT JOIN parking_spots s ON s.vehicle_id = v.id
	           LEFT JOIN parking_lots l ON l.id = s.lot_id
	           WHERE v.user_id = $1
	           ORDER BY v.id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindByUserID: %w", err)
	}
	defer rows.Close()

	vehicles := []domain.VehicleView{}
	for rows.Next() {
		var vv domain.VehicleView
		if err := rows.Scan(&vv.ID, &vv.UserID, &vv.LicensePlate, &vv.CreatedAt, &vv.SpotID,
			&vv.SpotNumber, &vv.LotID, &vv.LotName); err != nil {
			return nil, fmt.Errorf("VehicleRepository.FindByUserID (scanning row): %w", err)
		}
		vv.CreatedAt = vv.CreatedAt.In(time.UTC)
		vv.IsParked = vv.Parked()
		vehicles = append(vehicles, vv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindByUserID (rows error): %w", err)
	}
	return vehicles, nil
}
