package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"chemtrack/internal/auth"
	"chemtrack/internal/models"
	"chemtrack/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// FieldErrors maps a request field to its validation messages, mirroring the
// field-level detail the API contract promises for 400 responses.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	var parts []string
	for field, msgs := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	return strings.Join(parts, ", ")
}

var ErrInvalidCredentials = errors.New("invalid username or password")

var (
	letterPattern  = regexp.MustCompile(`[a-zA-Z]`)
	digitPattern   = regexp.MustCompile(`[0-9]`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

type AuthService interface {
	Register(ctx context.Context, username, password, passwordConfirm string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

type authService struct {
	users    repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthService(users repository.UserRepository, secret []byte, tokenTTL time.Duration) AuthService {
	return &authService{
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

func (s *authService) Register(ctx context.Context, username, password, passwordConfirm string) (*models.User, error) {
	fieldErrs := FieldErrors{}

	if len(username) < 3 {
		fieldErrs["username"] = append(fieldErrs["username"], "Username must be at least 3 characters.")
	} else {
		existing, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if existing != nil {
			fieldErrs["username"] = append(fieldErrs["username"], "Username already exists.")
		}
	}

	if len(password) < 8 {
		fieldErrs["password"] = append(fieldErrs["password"], "Password must be at least 8 characters.")
	}
	if !letterPattern.MatchString(password) {
		fieldErrs["password"] = append(fieldErrs["password"], "Password must contain at least one letter.")
	}
	if !digitPattern.MatchString(password) {
		fieldErrs["password"] = append(fieldErrs["password"], "Password must contain at least one number.")
	}
	if !specialPattern.MatchString(password) {
		fieldErrs["password"] = append(fieldErrs["password"], "Password must contain at least one special character.")
	}

	if password != passwordConfirm {
		fieldErrs["password_confirm"] = append(fieldErrs["password_confirm"], "Passwords do not match.")
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return auth.GenerateToken(user.ID, user.Username, s.secret, s.tokenTTL)
}
