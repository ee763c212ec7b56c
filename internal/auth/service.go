package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Spok95/ops-portal/internal/domain/auditlog"
	"github.com/Spok95/ops-portal/internal/domain/users"
	"github.com/Spok95/ops-portal/internal/infra/metrics"
)

const MinPasswordLen = 8

var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrInvalidToken       = errors.New("auth: invalid or expired token")
	ErrSessionClosed      = errors.New("auth: session closed")
	ErrWeakPassword       = fmt.Errorf("auth: password must be at least %d characters", MinPasswordLen)
)

type Users interface {
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	GetByID(ctx context.Context, id int64) (*users.User, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) error
}

type Sessions interface {
	Put(ctx context.Context, jti string, userID int64, ttl time.Duration) error
	Owner(ctx context.Context, jti string) (int64, error)
	Revoke(ctx context.Context, jti string) error
}

// Claims are carried in every issued token; ID (jti) names the server-side session.
type Claims struct {
	UserID int64        `json:"uid"`
	Email  string       `json:"email"`
	Code   string       `json:"code"`
	Access users.Access `json:"access"`
	jwt.RegisteredClaims
}

type Token struct {
	AccessToken string      `json:"token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        *users.User `json:"user"`
}

type Service struct {
	users    Users
	sessions Sessions
	accounts auditlog.AccountStore
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	log      *slog.Logger
}

func NewService(u Users, s Sessions, accounts auditlog.AccountStore, secret string, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		users:    u,
		sessions: s,
		accounts: accounts,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// HashPassword returns the bcrypt hash stored in users.password_hash.
func HashPassword(pw string) (string, error) {
	if len(pw) < MinPasswordLen {
		return "", ErrWeakPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	u, err := s.users.GetByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		metrics.AuthEvents.WithLabelValues("login_failed").Inc()
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		metrics.AuthEvents.WithLabelValues("login_failed").Inc()
		s.account(ctx, u.ID, auditlog.LoginFailed)
		return nil, ErrInvalidCredentials
	}

	tok, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	metrics.AuthEvents.WithLabelValues("login").Inc()
	s.account(ctx, u.ID, auditlog.Login)
	return tok, nil
}

func (s *Service) issue(ctx context.Context, u *users.User) (*Token, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Code:   u.Code,
		Access: u.Access,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   fmt.Sprint(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	if err := s.sessions.Put(ctx, claims.ID, u.ID, s.ttl); err != nil {
		return nil, err
	}
	return &Token{AccessToken: signed, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// Parse verifies signature and expiry, then checks the session is still open.
func (s *Service) Parse(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}

	owner, err := s.sessions.Owner(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if owner != claims.UserID {
		return nil, ErrSessionClosed
	}
	return claims, nil
}

func (s *Service) Logout(ctx context.Context, c *Claims) error {
	if err := s.sessions.Revoke(ctx, c.ID); err != nil {
		return err
	}
	metrics.AuthEvents.WithLabelValues("logout").Inc()
	s.account(ctx, c.UserID, auditlog.Logout)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	s.account(ctx, userID, auditlog.PasswordChanged)
	return nil
}

// account writes the account log outside any request transaction; a failure is logged
// and does not undo the login or logout it describes.
func (s *Service) account(ctx context.Context, userID int64, ev auditlog.AccountEvent) {
	if err := auditlog.RecordAccount(ctx, s.accounts, userID, ev); err != nil {
		s.log.Warn("account log failed", "err", err, "user_id", userID, "event", ev)
	}
}
