package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/sirupsen/logrus"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

// SettingsService stores the daily reminder time and the date of the last run
// in app_config. Unset keys fall back to the configured defaults.
type SettingsService struct {
	configRepo repository.AppConfigRepository
	defaults   domain.ReminderSettings
	logger     *logrus.Logger
}

func NewSettingsService(configRepo repository.AppConfigRepository, defaultHour, defaultMinute int, logger *logrus.Logger) *SettingsService {
	return &SettingsService{
		configRepo: configRepo,
		defaults:   domain.ReminderSettings{Hour: defaultHour, Minute: defaultMinute},
		logger:     logger,
	}
}

func (s *SettingsService) ReminderSettings(ctx context.Context) (domain.ReminderSettings, error) {
	settings := s.defaults

	hour, err := s.intValue(ctx, domain.ConfigReminderHour, s.defaults.Hour)
	if err != nil {
		return settings, err
	}
	minute, err := s.intValue(ctx, domain.ConfigReminderMinute, s.defaults.Minute)
	if err != nil {
		return settings, err
	}
	lastRun, err := s.configRepo.Get(ctx, domain.ConfigReminderLastRun)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return settings, err
	}

	settings.Hour, settings.Minute, settings.LastRun = hour, minute, lastRun
	return settings, nil
}

func (s *SettingsService) intValue(ctx context.Context, key string, fallback int) (int, error) {
	raw, err := s.configRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fallback, nil
		}
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"key": key, "value": raw}).Warn("ignoring malformed app_config value")
		return fallback, nil
	}
	return v, nil
}

func (s *SettingsService) UpdateReminderTime(ctx context.Context, hour, minute int) (domain.ReminderSettings, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return domain.ReminderSettings{}, ErrInvalidReminderTime
	}
	if err := s.configRepo.Set(ctx, domain.ConfigReminderHour, strconv.Itoa(hour)); err != nil {
		return domain.ReminderSettings{}, err
	}
	if err := s.configRepo.Set(ctx, domain.ConfigReminderMinute, strconv.Itoa(minute)); err != nil {
		return domain.ReminderSettings{}, err
	}
	s.logger.WithFields(logrus.Fields{"hour": hour, "minute": minute}).Info("reminder time updated")
	return s.ReminderSettings(ctx)
}

// MarkReminderRun records the display-zone date on which the daily reminders went out.
func (s *SettingsService) MarkReminderRun(ctx context.Context, date string) error {
	return s.configRepo.Set(ctx, domain.ConfigReminderLastRun, date)
}
