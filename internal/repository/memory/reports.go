package memory

import (
	"context"
	"sort"
	"time"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type reportRepository struct{ s *Store }

func NewReportRepository(s *Store) repository.ReportRepository {
	return &reportRepository{s: s}
}

func (r *reportRepository) RevenuePerLot(ctx context.Context) ([]domain.LotRevenue, error) {
	defer r.s.lock(ctx)()
	out := []domain.LotRevenue{}
	for _, lot := range r.s.lotsWhere(func(domain.ParkingLot) bool { return true }) {
		row := domain.LotRevenue{LotID: lot.ID, LotName: lot.Name}
		for _, ps := range r.s.t.sessions {
			if ps.LotID != lot.ID {
				continue
			}
			switch ps.Status {
			case domain.SessionOut:
				row.Revenue += ps.Cost.Float64
				row.CompletedSessions++
			case domain.SessionActive:
				row.InProgress++
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *reportRepository) OccupancyPerLot(ctx context.Context) ([]domain.LotOccupancy, error) {
	defer r.s.lock(ctx)()
	out := []domain.LotOccupancy{}
	for _, lot := range r.s.lotsWhere(func(domain.ParkingLot) bool { return true }) {
		out = append(out, domain.LotOccupancy{
			LotID:      lot.ID,
			LotName:    lot.Name,
			TotalSpots: lot.TotalSpots,
			Occupied:   lot.OccupiedSpots,
			Available:  lot.AvailableSpots,
		})
	}
	return out, nil
}

func (r *reportRepository) CompletedSessions(ctx context.Context, lotID int, from, to time.Time) ([]domain.SessionRecord, error) {
	defer r.s.lock(ctx)()
	records := []domain.SessionRecord{}
	for _, ps := range r.s.t.sessions {
		if ps.Status != domain.SessionOut || !ps.EndTime.Valid {
			continue
		}
		if lotID > 0 && ps.LotID != lotID {
			continue
		}
		end := ps.EndTime.Time
		if (!from.IsZero() && end.Before(from)) || (!to.IsZero() && !end.Before(to)) {
			continue
		}
		records = append(records, r.s.record(ps))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].EndTime.Time.Before(records[j].EndTime.Time) })
	return records, nil
}

func (r *reportRepository) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	defer r.s.lock(ctx)()
	stats := &domain.DashboardStats{
		TotalLots:     len(r.s.t.lots),
		TotalSpots:    len(r.s.t.spots),
		TotalVehicles: len(r.s.t.vehicles),
	}
	for _, u := range r.s.t.users {
		if u.Role == domain.RoleUser {
			stats.TotalUsers++
		}
	}
	for _, sp := range r.s.t.spots {
		if sp.Occupied() {
			stats.OccupiedSpots++
		}
	}
	stats.AvailableSpots = stats.TotalSpots - stats.OccupiedSpots
	for _, ps := range r.s.t.sessions {
		if ps.Status == domain.SessionActive {
			stats.ActiveSessions++
		}
	}
	return stats, nil
}

func (r *reportRepository) CountLots(ctx context.Context) (int, error) {
	defer r.s.lock(ctx)()
	return len(r.s.t.lots), nil
}

func (r *reportRepository) UsersWithoutSessionSince(ctx context.Context, since time.Time) ([]domain.User, error) {
	defer r.s.lock(ctx)()
	started := r.s.usersStartedSince(since)
	return r.s.usersWhere(func(u domain.User) bool {
		return u.Role == domain.RoleUser && !started[u.ID]
	}), nil
}

func (r *reportRepository) CountUsersWithSessionSince(ctx context.Context, since time.Time) (int, error) {
	defer r.s.lock(ctx)()
	n := 0
	for id := range r.s.usersStartedSince(since) {
		if r.s.t.users[id].Role == domain.RoleUser {
			n++
		}
	}
	return n, nil
}

func (r *reportRepository) CountUsersWithActiveSession(ctx context.Context) (int, error) {
	defer r.s.lock(ctx)()
	users := map[int]bool{}
	for _, ps := range r.s.t.sessions {
		if ps.Status == domain.SessionActive {
			users[ps.UserID] = true
		}
	}
	return len(users), nil
}

func (r *reportRepository) CountUsersByRole(ctx context.Context, role domain.Role) (int, error) {
	defer r.s.lock(ctx)()
	return len(r.s.usersWhere(func(u domain.User) bool { return u.Role == role })), nil
}

func (s *Store) usersStartedSince(since time.Time) map[int]bool {
	started := map[int]bool{}
	for _, ps := range s.t.sessions {
		if !ps.StartTime.Before(since) {
			started[ps.UserID] = true
		}
	}
	return started
}
