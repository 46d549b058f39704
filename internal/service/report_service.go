package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v4"

	"parkease/internal/cache"
	"parkease/internal/domain"
	"parkease/internal/repository"
)

// DisplayTimeLayout is how timestamps are shown to users, e.g. "2024-03-05 06:30 PM".
const DisplayTimeLayout = "2006-01-02 03:04 PM"

// ReportService is read-only: it never writes occupancy state.
type ReportService struct {
	reportRepo  repository.ReportRepository
	sessionRepo repository.ParkingSessionRepository
	userRepo    repository.UserRepository
	settings    *SettingsService
	cache       Cache
	ttls        CacheTTLs
	loc         *time.Location
	logger      *logrus.Logger
	now         func() time.Time
}

func NewReportService(
	reportRepo repository.ReportRepository,
	sessionRepo repository.ParkingSessionRepository,
	userRepo repository.UserRepository,
	settings *SettingsService,
	cache Cache,
	ttls CacheTTLs,
	loc *time.Location,
	logger *logrus.Logger,
) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		reportRepo:  reportRepo,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		settings:    settings,
		cache:       cache,
		ttls:        ttls,
		loc:         loc,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *ReportService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *ReportService) Location() *time.Location {
	return s.loc
}

// RevenueSummary sums closed sessions per lot. Active sessions add nothing to
// revenue and are only counted as in progress.
func (s *ReportService) RevenueSummary(ctx context.Context) (*domain.RevenueSummary, error) {
	return remember(s.cache, cache.KeySummary("revenue"), s.ttls.Summary, func() (*domain.RevenueSummary, error) {
		lots, err := s.reportRepo.RevenuePerLot(ctx)
		if err != nil {
			return nil, err
		}
		summary := &domain.RevenueSummary{Lots: lots}
		for i := range lots {
			lots[i].Revenue = roundMoney(lots[i].Revenue)
			summary.TotalRevenue += lots[i].Revenue
		}
		summary.TotalRevenue = roundMoney(summary.TotalRevenue)
		return summary, nil
	})
}

func (s *ReportService) Occupancy(ctx context.Context) ([]domain.LotOccupancy, error) {
	return remember(s.cache, cache.KeySummary("occupancy"), s.ttls.Summary, func() ([]domain.LotOccupancy, error) {
		return s.reportRepo.OccupancyPerLot(ctx)
	})
}

func (s *ReportService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	return remember(s.cache, cache.KeySummary("dashboard"), s.ttls.Summary, func() (*domain.DashboardStats, error) {
		return s.reportRepo.Dashboard(ctx)
	})
}

// RevenueTimeSeries buckets completed sessions by end time. lotID 0 covers every lot.
func (s *ReportService) RevenueTimeSeries(ctx context.Context, period domain.Period, lotID int) ([]domain.TimeSeriesPoint, error) {
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	key := cache.KeySummary(fmt.Sprintf("timeseries:%s:%d", period, lotID))
	return remember(s.cache, key, s.ttls.Summary, func() ([]domain.TimeSeriesPoint, error) {
		records, err := s.reportRepo.CompletedSessions(ctx, lotID, time.Time{}, time.Time{})
		if err != nil {
			return nil, err
		}
		return BucketRevenue(records, period, s.loc), nil
	})
}

// PeriodKey formats t as the bucket label for period in loc.
func PeriodKey(t time.Time, period domain.Period, loc *time.Location) string {
	t = t.In(loc)
	switch period {
	case domain.PeriodWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case domain.PeriodMonthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// BucketRevenue groups closed sessions by the period containing their end time.
// Points come back sorted by label.
func BucketRevenue(records []domain.SessionRecord, period domain.Period, loc *time.Location) []domain.TimeSeriesPoint {
	buckets := map[string]*domain.TimeSeriesPoint{}
	for _, rec := range records {
		if rec.Status != domain.SessionOut || !rec.EndTime.Valid {
			continue
		}
		key := PeriodKey(rec.EndTime.Time, period, loc)
		p, ok := buckets[key]
		if !ok {
			p = &domain.TimeSeriesPoint{Period: key}
			buckets[key] = p
		}
		p.Revenue += rec.Cost.Float64
		p.Sessions++
	}

	points := make([]domain.TimeSeriesPoint, 0, len(buckets))
	for _, p := range buckets {
		p.Revenue = roundMoney(p.Revenue)
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Period < points[j].Period })
	return points
}

// History lists the user's sessions. With a month filter it returns that month
// only; without one it returns the current month, or everything if the current
// month is empty.
func (s *ReportService) History(ctx context.Context, userID int, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	if filter.Month != 0 && (filter.Month < 1 || filter.Month > 12) {
		return nil, ErrInvalidMonth
	}
	key := cache.KeyHistory(userID, filter.Month, filter.Year)
	return remember(s.cache, key, s.ttls.History, func() ([]domain.HistoryEntry, error) {
		records, err := s.historyRecords(ctx, userID, filter)
		if err != nil {
			return nil, err
		}
		entries := make([]domain.HistoryEntry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, toHistoryEntry(rec, s.loc))
		}
		return entries, nil
	})
}

func (s *ReportService) historyRecords(ctx context.Context, userID int, filter domain.HistoryFilter) ([]domain.SessionRecord, error) {
	now := s.now().In(s.loc)
	if filter.Month != 0 {
		year := filter.Year
		if year == 0 {
			year = now.Year()
		}
		from, to := monthBounds(year, time.Month(filter.Month), s.loc)
		return s.sessionRepo.FindRecordsByUser(ctx, userID, from, to)
	}

	from, to := monthBounds(now.Year(), now.Month(), s.loc)
	records, err := s.sessionRepo.FindRecordsByUser(ctx, userID, from, to)
	if err != nil || len(records) > 0 {
		return records, err
	}
	return s.sessionRepo.FindRecordsByUser(ctx, userID, time.Time{}, time.Time{})
}

// RefreshHistory drops the cached history views of one user.
func (s *ReportService) RefreshHistory(userID int) {
	invalidate(s.cache, cache.KeyHistoryUser(userID))
}

func toHistoryEntry(rec domain.SessionRecord, loc *time.Location) domain.HistoryEntry {
	entry := domain.HistoryEntry{
		ID:           rec.ID,
		LicensePlate: rec.LicensePlate,
		LotName:      rec.LotName,
		LotAddress:   rec.LotAddress,
		LotPincode:   rec.LotPincode,
		PricePerHour: rec.PricePerHour,
		SpotID:       rec.SpotID,
		SpotNumber:   rec.SpotNumber,
		ParkingTime:  FormatDisplayTime(rec.StartTime, loc),
		Cost:         rec.Cost,
		Status:       rec.Status,
	}
	if rec.EndTime.Valid {
		entry.ReleasedTime = null.StringFrom(FormatDisplayTime(rec.EndTime.Time, loc))
	}
	return entry
}

func FormatDisplayTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DisplayTimeLayout)
}

// monthBounds returns [first instant of the month, first instant of the next) in loc.
func monthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func (s *ReportService) ReminderStats(ctx context.Context) (*domain.ReminderStats, error) {
	dayStart := startOfDay(s.now(), s.loc)

	total, err := s.reportRepo.CountUsersByRole(ctx, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	parkedToday, err := s.reportRepo.CountUsersWithSessionSince(ctx, dayStart)
	if err != nil {
		return nil, err
	}
	active, err := s.reportRepo.CountUsersWithActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	lots, err := s.reportRepo.CountLots(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.ReminderSettings(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.ReminderStats{
		TotalUsers:        total,
		UsersParkedToday:  parkedToday,
		UsersNeedReminder: total - parkedToday,
		UsersWithActive:   active,
		ReminderTime:      settings.Clock(),
		LotsAvailable:     lots > 0,
	}, nil
}

// MonthlyReport builds one user's activity summary for a calendar month in the
// display zone. Active sessions count towards hours up to now but cost nothing yet.
func (s *ReportService) MonthlyReport(ctx context.Context, userID, month, year int) (*domain.MonthlyReport, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	from, to := monthBounds(year, time.Month(month), s.loc)
	records, err := s.sessionRepo.FindRecordsByUser(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return BuildMonthlyReport(*user, month, year, records, s.now(), s.loc), nil
}

// BuildMonthlyReport aggregates records, which are expected newest first.
func BuildMonthlyReport(user domain.User, month, year int, records []domain.SessionRecord, now time.Time, loc *time.Location) *domain.MonthlyReport {
	report := &domain.MonthlyReport{
		UserID:        user.ID,
		FullName:      user.FullName,
		Email:         user.Email,
		Month:         month,
		Year:          year,
		MonthName:     time.Month(month).String(),
		TotalBookings: len(records),
		LotUsage:      []domain.LotUsage{},
		Recent:        []domain.HistoryEntry{},
	}

	usage := map[string]*domain.LotUsage{}
	var order []string
	for _, rec := range records {
		end := now
		if rec.EndTime.Valid {
			end = rec.EndTime.Time
		}
		if hours := end.Sub(rec.StartTime).Hours(); hours > 0 {
			report.TotalHours += hours
		}
		if rec.Status == domain.SessionOut {
			report.CompletedSessions++
			report.TotalSpent += rec.Cost.Float64
		}

		u, ok := usage[rec.LotName]
		if !ok {
			u = &domain.LotUsage{LotName: rec.LotName}
			usage[rec.LotName] = u
			order = append(order, rec.LotName)
		}
		u.Visits++
		u.Spent += rec.Cost.Float64
	}

	for _, name := range order {
		u := usage[name]
		u.Spent = roundMoney(u.Spent)
		report.LotUsage = append(report.LotUsage, *u)
	}
	sort.SliceStable(report.LotUsage, func(i, j int) bool { return report.LotUsage[i].Visits > report.LotUsage[j].Visits })
	if len(report.LotUsage) > 0 {
		report.MostUsedLot = report.LotUsage[0].LotName
	}

	report.TotalSpent = roundMoney(report.TotalSpent)
	report.TotalHours = math.Round(report.TotalHours*10) / 10
	if report.TotalBookings > 0 {
		report.AvgDurationHours = math.Round(report.TotalHours/float64(report.TotalBookings)*10) / 10
	}

	for i, rec := range records {
		if i == 5 {
			break
		}
		report.Recent = append(report.Recent, toHistoryEntry(rec, loc))
	}

	report.SavingsTip = SavingsTip(report)
	return report
}

// SavingsTip picks the first matching suggestion for the month's pattern.
func SavingsTip(r *domain.MonthlyReport) string {
	if len(r.LotUsage) > 0 && r.LotUsage[0].Visits > 10 {
		return fmt.Sprintf("You parked at %s %d times this month. Ask about a monthly pass to save on frequent visits.",
			r.LotUsage[0].LotName, r.LotUsage[0].Visits)
	}
	if r.TotalSpent > 1000 {
		return "Your parking spend crossed ₹1000 this month. Carpooling a few days a week could cut it noticeably."
	}
	if len(r.LotUsage) > 3 {
		return "You used several different lots this month. Sticking to one or two could earn you loyalty benefits."
	}
	if r.TotalSpent > 0 && len(r.LotUsage) > 1 {
		var top domain.LotUsage
		for _, u := range r.LotUsage {
			if u.Spent > top.Spent {
				top = u
			}
		}
		if top.Spent > r.TotalSpent/2 {
			return fmt.Sprintf("Most of your spend went to %s. Check nearby lots for cheaper alternatives.", top.LotName)
		}
	}
	return "Great job managing your parking! Keep up the good work."
}
