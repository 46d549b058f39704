package postgresql

import (
	"context"
	"database/sql"
	"fmt"
)

// The occupant lives only on parking_spots.vehicle_id. The UNIQUE on that
// column keeps a vehicle in at most one spot and the partial index keeps it in
// at most one active session. Sessions copy the spot number so closed rows
// outlive spots removed by a capacity reduction.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		pincode TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS parking_lots (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		pincode TEXT NOT NULL DEFAULT '',
		price_per_hour NUMERIC(10,2) NOT NULL CHECK (price_per_hour > 0),
		max_spots INT NOT NULL CHECK (max_spots >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id SERIAL PRIMARY KEY,
		user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		license_plate TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS parking_spots (
		id SERIAL PRIMARY KEY,
		lot_id INT NOT NULL REFERENCES parking_lots(id) ON DELETE CASCADE,
		spot_number INT NOT NULL CHECK (spot_number > 0),
		vehicle_id INT UNIQUE REFERENCES vehicles(id) ON DELETE RESTRICT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (lot_id, spot_number)
	)`,
	`CREATE TABLE IF NOT EXISTS parking_sessions (
		id SERIAL PRIMARY KEY,
		user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		vehicle_id INT NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
		lot_id INT NOT NULL REFERENCES parking_lots(id) ON DELETE CASCADE,
		spot_id INT REFERENCES parking_spots(id) ON DELETE SET NULL,
		spot_number INT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		cost NUMERIC(10,2),
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'out'))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS parking_sessions_one_active_per_vehicle
		ON parking_sessions (vehicle_id) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS parking_sessions_user_start_idx ON parking_sessions (user_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS parking_sessions_end_time_idx ON parking_sessions (end_time) WHERE status = 'out'`,
	`CREATE TABLE IF NOT EXISTS app_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY,
		kind TEXT NOT NULL,
		user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		format TEXT NOT NULL DEFAULT 'csv',
		status TEXT NOT NULL CHECK (status IN ('pending', 'running', 'succeeded', 'failed')),
		filename TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
