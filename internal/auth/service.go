package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/entities"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRequired      = errors.New("email is required")
	ErrEmailInvalid       = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
)

// UserStore is the credential store the service authenticates against.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByID(ctx context.Context, id uint) (*entities.User, error)
	Create(ctx context.Context, email, passwordHash string) (*entities.User, error)
	Count(ctx context.Context) (int64, error)
}

// Service handles registration and credential checks.
type Service struct {
	users  UserStore
	config config.Auth
	logger *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a new authentication service.
func NewService(store UserStore, cfg config.Auth, logger *zap.Logger) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	return &Service{
		users:  store,
		config: cfg,
		logger: logger.Named("auth"),
	}
}

// Register creates an administrator. An email that is already stored is
// rejected before any hash is computed; the unique index on email settles
// concurrent registrations so that only one of them is stored.
func (s *Service) Register(ctx context.Context, email, password string) (*entities.User, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, email, passwordHash)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Administrator registered", zap.Uint("user_id", user.ID))
	return user, nil
}

// Login checks an email/password pair. An unknown email and a wrong password
// both fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*entities.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			// Same bcrypt work as a real check, so response time does not
			// reveal whether the email exists.
			_ = CheckPassword(password, s.dummyPasswordHash())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return user, nil
}

// RequireAuthenticated resolves the user behind a session's user id.
// A zero id or a user that no longer exists fails with ErrUnauthenticated.
func (s *Service) RequireAuthenticated(ctx context.Context, userID uint) (*entities.User, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := HashPassword("not-a-real-password", s.config.BcryptCost)
		if err != nil {
			s.logger.Error("Failed to prepare dummy hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func validateCredentials(email, password string) error {
	if email == "" {
		return ErrEmailRequired
	}
	// RFC 5321 limit is 254
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
