package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

// UserService is the admin view over user accounts.
type UserService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.ParkingSessionRepository
	logger      *logrus.Logger
}

func NewUserService(userRepo repository.UserRepository, sessionRepo repository.ParkingSessionRepository, logger *logrus.Logger) *UserService {
	return &UserService{userRepo: userRepo, sessionRepo: sessionRepo, logger: logger}
}

// ListUsers returns role=user accounts with the spots they occupy right now.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.UserWithParking, error) {
	users, err := s.userRepo.ListByRole(ctx, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.withParking(ctx, users)
}

func (s *UserService) SearchUsers(ctx context.Context, q string) ([]domain.UserWithParking, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.ListUsers(ctx)
	}
	users, err := s.userRepo.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.withParking(ctx, users)
}

func (s *UserService) withParking(ctx context.Context, users []domain.User) ([]domain.UserWithParking, error) {
	current, err := s.userRepo.CurrentSpots(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserWithParking, 0, len(users))
	for _, u := range users {
		spots := current[u.ID]
		if spots == nil {
			spots = []domain.CurrentSpot{}
		}
		out = append(out, domain.UserWithParking{User: u, CurrentSpots: spots})
	}
	return out, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id int, dto domain.AdminUpdateUserDTO) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	changed := dto.UpdateProfileDTO.Apply(user)
	if dto.Role != nil {
		if !dto.Role.Valid() {
			return nil, ErrInvalidRole
		}
		user.Role = *dto.Role
		changed = true
	}
	if !changed {
		return nil, newError(ErrInvalidInput, "No valid fields to update")
	}

	updated, err := s.userRepo.Update(ctx, user)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"user_id": id, "role": updated.Role}).Info("user updated by admin")
	return updated, nil
}

// DeleteUser removes the account and its history. Refused while any of the
// user's vehicles is parked.
func (s *UserService) DeleteUser(ctx context.Context, id int) error {
	if _, err := s.userRepo.FindByID(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	active, err := s.sessionRepo.CountActiveByUser(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrUserHasParkedVehicle
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.WithField("user_id", id).Info("user deleted")
	return nil
}
