package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"sharelink/internal/auth"
	"sharelink/internal/model"
	"sharelink/internal/repository"
)

const (
	minPasswordLen = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
	maxUsernameLen = 50
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

// AuthService registers accounts and exchanges credentials for tokens.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

type authService struct {
	users  repository.UserRepository
	tokens *auth.TokenAuth
	clock  clockwork.Clock
	cost   int
}

// NewAuthService uses bcrypt.DefaultCost when cost is zero.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenAuth, clock clockwork.Clock, cost int) AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &authService{users: users, tokens: tokens, clock: clock, cost: cost}
}

func (s *authService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" || password == "" {
		return nil, invalid("username, email and password are required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return nil, invalid("username is too long")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email is not valid")
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return nil, invalid("password must be between 6 and 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserExists
		}
		return nil, unavailable("create user", err)
	}
	return s.issue(u)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid("email and password are required")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, unavailable("find user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *authService) issue(u *model.User) (*AuthResult, error) {
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     tok.AccessToken,
		ExpiresAt: tok.ExpiresAt.UTC(),
		User:      *u,
	}, nil
}
