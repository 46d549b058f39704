package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type pgReportRepository struct {
	db *sqlx.DB
}

// NewPgReportRepository wraps the shared pool for read-side struct scans.
func NewPgReportRepository(db *sql.DB) repository.ReportRepository {
	return &pgReportRepository{db: sqlx.NewDb(db, "pgx")}
}

func (r *pgReportRepository) RevenuePerLot(ctx context.Context) ([]domain.LotRevenue, error) {
	query := `SELECT l.id AS lot_id, l.name AS lot_name,
	       COALESCE(SUM(ps.cost) FILTER (WHERE ps.status = 'out'), 0) AS revenue,
	       COUNT(ps.id) FILTER (WHERE ps.status = 'out') AS completed_sessions,
	       COUNT(ps.id) FILTER (WHERE ps.status = 'active') AS in_progress
	FROM parking_lots l
	LEFT JOIN parking_sessions ps ON ps.lot_id = l.id
	GROUP BY l.id, l.name
	ORDER BY l.name, l.id`

	revenues := []domain.LotRevenue{}
	if err := r.db.SelectContext(ctx, &revenues, query); err != nil {
		return nil, fmt.Errorf("ReportRepository.RevenuePerLot: %w", err)
	}
	return revenues, nil
}

func (r *pgReportRepository) OccupancyPerLot(ctx context.Context) ([]domain.LotOccupancy, error) {
	query := `SELECT l.id AS lot_id, l.name AS lot_name,
	       COUNT(s.id) AS total_spots,
	       COUNT(s.vehicle_id) AS occupied,
	       COUNT(s.id) - COUNT(s.vehicle_id) AS available
	FROM parking_lots l
	LEFT JOIN parking_spots s ON s.lot_id = l.id
	GROUP BY l.id, l.name
	ORDER BY l.name, l.id`

	occupancy := []domain.LotOccupancy{}
	if err := r.db.SelectContext(ctx, &occupancy, query); err != nil {
		return nil, fmt.Errorf("ReportRepository.OccupancyPerLot: %w", err)
	}
	for i := range occupancy {
		if occupancy[i].TotalSpots > 0 {
			occupancy[i].OccupancyRate = float64(occupancy[i].Occupied) / float64(occupancy[i].TotalSpots) * 100
		}
	}
	return occupancy, nil
}

func (r *pgReportRepository) CompletedSessions(ctx context.Context, lotID int, from, to time.Time) ([]domain.SessionRecord, error) {
	conditions := []string{"ps.status = 'out'"}
	args := []any{}

	if lotID > 0 {
		args = append(args, lotID)
		conditions = append(conditions, fmt.Sprintf("ps.lot_id = $%d", len(args)))
	}
	if !from.IsZero() {
		args = append(args, from)
		conditions = append(conditions, fmt.Sprintf("ps.end_time >= $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to)
		conditions = append(conditions, fmt.Sprintf("ps.end_time < $%d", len(args)))
	}

	query := `SELECT ps.id, ps.user_id, ps.vehicle_id, v.license_plate, ps.lot_id, l.name AS lot_name,
	       l.address AS lot_address, l.pincode AS lot_pincode, l.price_per_hour, COALESCE(ps.spot_id, 0) AS spot_id, ps.spot_number,
	       ps.start_time, ps.end_time, ps.cost, ps.status
	FROM parking_sessions ps
	JOIN vehicles v ON v.id = ps.vehicle_id
	JOIN parking_lots l ON l.id = ps.lot_id
	WHERE ` + strings.Join(conditions, " AND ") + `
	ORDER BY ps.end_time`

	records := []domain.SessionRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("ReportRepository.CompletedSessions: %w", err)
	}
	return records, nil
}

func (r *pgReportRepository) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	query := `SELECT
	       (SELECT COUNT(*) FROM users WHERE role = 'user') AS total_users,
	       (SELECT COUNT(*) FROM parking_lots) AS total_lots,
	       (SELECT COUNT(*) FROM parking_spots) AS total_spots,
	       (SELECT COUNT(*) FROM parking_spots WHERE vehicle_id IS NOT NULL) AS occupied_spots,
	       (SELECT COUNT(*) FROM parking_spots WHERE vehicle_id IS NULL) AS available_spots,
	       (SELECT COUNT(*) FROM vehicles) AS total_vehicles,
	       (SELECT COUNT(*) FROM parking_sessions WHERE status = 'active') AS active_sessions`

	var stats domain.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("ReportRepository.Dashboard: %w", err)
	}
	return &stats, nil
}

func (r *pgReportRepository) CountLots(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM parking_lots`); err != nil {
		return 0, fmt.Errorf("ReportRepository.CountLots: %w", err)
	}
	return count, nil
}

type userRow struct {
	ID       int       `db:"id"`
	FullName string    `db:"full_name"`
	Email    string    `db:"email"`
	Phone    string    `db:"phone"`
	Role     string    `db:"role"`
	Created  time.Time `db:"created_at"`
}

func (u userRow) toDomain() domain.User {
	return domain.User{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      domain.Role(u.Role),
		CreatedAt: u.Created.In(time.UTC),
	}
}

func (r *pgReportRepository) UsersWithoutSessionSince(ctx context.Context, since time.Time) ([]domain.User, error) {
	query := `SELECT u.id, u.full_name, u.email, u.phone, u.role, u.created_at
	FROM users u
	WHERE u.role = 'user'
	  AND NOT EXISTS (
	      SELECT 1 FROM parking_sessions ps WHERE ps.user_id = u.id AND ps.start_time >= $1
	  )
	ORDER BY u.id`

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("ReportRepository.UsersWithoutSessionSince: %w", err)
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

func (r *pgReportRepository) CountUsersWithSessionSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(DISTINCT ps.user_id) FROM parking_sessions ps
	          JOIN users u ON u.id = ps.user_id
	          WHERE u.role = 'user' AND ps.start_time >= $1`
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("ReportRepository.CountUsersWithSessionSince: %w", err)
	}
	return count, nil
}

func (r *pgReportRepository) CountUsersWithActiveSession(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(DISTINCT user_id) FROM parking_sessions WHERE status = 'active'`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("ReportRepository.CountUsersWithActiveSession: %w", err)
	}
	return count, nil
}

func (r *pgReportRepository) CountUsersByRole(ctx context.Context, role domain.Role) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE role = $1`, role); err != nil {
		return 0, fmt.Errorf("ReportRepository.CountUsersByRole: %w", err)
	}
	return count, nil
}
