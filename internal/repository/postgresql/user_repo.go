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

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) repository.UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, full_name, email, phone, address, pincode, password_hash, role, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	if err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.Phone, &user.Address,
		&user.Pincode, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (full_name, email, phone, address, pincode, password_hash, role)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           RETURNING id, created_at`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, user.FullName, user.Email, user.Phone,
		user.Address, user.Pincode, user.PasswordHash, user.Role).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email '%s' is already registered", repository.ErrDuplicateEntry, user.Email)
		}
		return nil, fmt.Errorf("UserRepository.Create: %w", err)
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.FindByEmail: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `UPDATE users SET full_name = $1, phone = $2, address = $3, pincode = $4, role = $5 WHERE id = $6`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, user.FullName, user.Phone, user.Address,
		user.Pincode, user.Role, user.ID)
	if err != nil {
		return nil, fmt.Errorf("UserRepository.Update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("UserRepository.Update (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (r *pgUserRepository) Delete(ctx context.Context, id int) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("UserRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("UserRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY id`
	return r.list(ctx, "ListByRole", query, role)
}

func (r *pgUserRepository) Search(ctx context.Context, q string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	           WHERE role = 'user' AND (full_name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1 OR pincode ILIKE $1)
	           ORDER BY id`
	return r.list(ctx, "Search", query, "%"+q+"%")
}

func (r *pgUserRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.User, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("UserRepository.%s: %w", op, err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("UserRepository.%s (scanning row): %w", op, err)
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("UserRepository.%s (rows error): %w", op, err)
	}
	return users, nil
}

func (r *pgUserRepository) CurrentSpots(ctx context.Context) (map[int][]domain.CurrentSpot, error) {
	query := `SELECT v.user_id, s.id, s.spot_number, l.name, v.license_plate
	           FROM parking_spots s
	           JOIN vehicles v ON v.id = s.vehicle_id
	           JOIN parking_lots l ON l.id = s.lot_id
	           ORDER BY v.user_id, l.name, s.spot_number`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("UserRepository.CurrentSpots: %w", err)
	}
	defer rows.Close()

	spots := make(map[int][]domain.CurrentSpot)
	for rows.Next() {
		var userID int
		var cs domain.CurrentSpot
		if err := rows.Scan(&userID, &cs.SpotID, &cs.SpotNumber, &cs.LotName, &cs.LicensePlate); err != nil {
			return nil, fmt.Errorf("UserRepository.CurrentSpots (scanning row): %w", err)
		}
		spots[userID] = append(spots[userID], cs)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("UserRepository.CurrentSpots (rows error): %w", err)
	}
	return spots, nil
}
