package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

// Principal is the caller identity carried by a valid token.
type Principal struct {
	UserID int
	Role   domain.Role
	Email  string
}

type AuthService struct {
	userRepo      repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
	logger        *logrus.Logger
	now           func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpiration time.Duration, logger *logrus.Logger) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		logger:        logger,
		now:           time.Now,
	}
}

// Register creates a role=user account and logs it in.
func (s *AuthService) Register(ctx context.Context, dto domain.RegisterUserDTO) (*domain.AuthResponseDTO, error) {
	email := strings.ToLower(strings.TrimSpace(dto.Email))
	if email == "" || len(dto.Password) < 6 || strings.TrimSpace(dto.FullName) == "" {
		return nil, newError(ErrInvalidInput, "Full name, email and a password of at least 6 characters are required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, &domain.User{
		FullName:     strings.TrimSpace(dto.FullName),
		Email:        email,
		Phone:        strings.TrimSpace(dto.Phone),
		Address:      strings.TrimSpace(dto.Address),
		Pincode:      strings.TrimSpace(dto.Pincode),
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleUser,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, dto domain.LoginUserDTO) (*domain.AuthResponseDTO, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(dto.Email))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*domain.AuthResponseDTO, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   strconv.Itoa(user.ID),
		"exp":   now.Add(s.jwtExpiration).Unix(),
		"iat":   now.Unix(),
		"role":  string(user.Role),
		"email": user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.AuthResponseDTO{Token: tokenString, User: *user}, nil
}

// ValidateToken checks signature and expiry and extracts the caller.
func (s *AuthService) ValidateToken(tokenString string) (*Principal, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, newError(ErrUnauthorized, "Malformed token")
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, newError(ErrUnauthorized, "Token has expired")
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, okSub := claims["sub"].(string)
	role, okRole := claims["role"].(string)
	email, _ := claims["email"].(string)
	id, err := strconv.Atoi(sub)
	if !okSub || !okRole || err != nil || !domain.Role(role).Valid() {
		return nil, ErrInvalidToken
	}
	return &Principal{UserID: id, Role: domain.Role(role), Email: email}, nil
}

func (s *AuthService) Me(ctx context.Context, userID int) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) UpdateMe(ctx context.Context, userID int, dto domain.UpdateProfileDTO) (*domain.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !dto.Apply(user) {
		return nil, newError(ErrInvalidInput, "No valid fields to update")
	}
	if strings.TrimSpace(user.FullName) == "" {
		return nil, newError(ErrInvalidInput, "Full name cannot be empty")
	}
	return s.userRepo.Update(ctx, user)
}

// SeedAdmin creates the admin account if no user holds that email yet.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password, fullName string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !isNotFound(err) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin, err := s.userRepo.Create(ctx, &domain.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil
		}
		return err
	}
	s.logger.WithField("user_id", admin.ID).Info("admin account created")
	return nil
}
