package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parkease/internal/repository"
)

type pgAppConfigRepository struct {
	db *sql.DB
}

func NewPgAppConfigRepository(db *sql.DB) repository.AppConfigRepository {
	return &pgAppConfigRepository{db: db}
}

func (r *pgAppConfigRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT value FROM app_config WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("AppConfigRepository.Get: %w", err)
	}
	return value, nil
}

func (r *pgAppConfigRepository) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO app_config (key, value) VALUES ($1, $2)
	           ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("AppConfigRepository.Set: %w", err)
	}
	return nil
}
