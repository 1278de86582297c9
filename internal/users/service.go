package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidInput is returned when email or password is missing.
	ErrInvalidInput = errors.New("all fields required")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Service struct {
	Repo     Repo
	HashCost int
	Now      func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, HashCost: bcrypt.DefaultCost, Now: time.Now}
}

// NormalizeEmail trims and lowercases an address for lookup and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a new password account.
func (s *Service) Signup(ctx context.Context, email, password string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return User{}, fmt.Errorf("%w: password too long", ErrInvalidInput)
		}
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login verifies a password and returns the matching user.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Spend the same bcrypt work as a real mismatch.
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// LoginWithGoogle returns the account for a verified Google email, creating a
// password-less account on first sign-in.
func (s *Service) LoginWithGoogle(ctx context.Context, email string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, ErrInvalidInput
	}

	user, err := s.Repo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	user = User{ID: uuid.NewString(), Email: email, CreatedAt: s.now()}
	if err := s.Repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return s.Repo.GetByEmail(ctx, email)
		}
		return User{}, err
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) cost() int {
	if s.HashCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.HashCost
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost())
	})
	return s.dummyHash
}
