// Package auth handles credential verification and JWT session tokens.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/qoricash/tradingdesk/internal/app/domain/audit"
	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/app/storage"
	"github.com/qoricash/tradingdesk/internal/errors"
	"github.com/qoricash/tradingdesk/internal/logging"
)

// Claims is the JWT payload for desk sessions.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Config carries token issuance settings.
type Config struct {
	Secret   string
	TokenTTL time.Duration
	Issuer   string
}

// Recorder counts login outcomes for monitoring.
type Recorder interface {
	RecordLoginAttempt(outcome string)
}

// Service authenticates users and issues session tokens.
type Service struct {
	store    storage.Store
	recorder Recorder
	cfg      Config
	log      *logging.Logger
}

// New constructs an auth service.
func New(store storage.Store, cfg Config, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("auth")
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 8 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "tradingdesk"
	}
	return &Service{store: store, cfg: cfg, log: log}
}

// WithRecorder attaches a metrics sink.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// Session is a successful login result.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      user.User `json:"user"`
}

// Login verifies credentials by username or email and issues a signed token.
// Inactive accounts are rejected with the same error as bad credentials.
func (s *Service) Login(ctx context.Context, login, password string) (Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return Session{}, errors.Unauthorized("invalid credentials")
	}

	u, err := s.store.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			s.recordLogin("failure")
			return Session{}, errors.Unauthorized("invalid credentials")
		}
		return Session{}, err
	}
	if !u.Active() {
		s.log.WithContext(ctx).WithField("username", u.Username).Warn("login attempt on inactive account")
		s.recordLogin("failure")
		return Session{}, errors.Unauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.WithContext(ctx).WithField("username", u.Username).Warn("failed login attempt")
		s.recordLogin("failure")
		return Session{}, errors.Unauthorized("invalid credentials")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.cfg.TokenTTL)
	token, err := s.sign(u, now, expiresAt)
	if err != nil {
		return Session{}, errors.Internal(err)
	}

	err = s.store.InTx(ctx, func(tx storage.TxStore) error {
		u.LastLogin = now
		u, err = tx.UpdateUser(ctx, u)
		if err != nil {
			return err
		}
		meta := audit.MetaFromContext(ctx)
		_, err = tx.AppendAudit(ctx, audit.Entry{
			UserID:    u.ID,
			Action:    audit.ActionLogin,
			Entity:    audit.EntityUser,
			EntityID:  u.ID,
			Details:   fmt.Sprintf("user %s logged in", u.Username),
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
		return err
	})
	if err != nil {
		return Session{}, err
	}

	s.recordLogin("success")
	s.log.WithContext(ctx).
		WithField("username", u.Username).
		WithField("role", u.Role).
		Info("user logged in")
	return Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

func (s *Service) recordLogin(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordLoginAttempt(outcome)
	}
}

// Logout records the end of a session. Tokens are stateless, so this only
// stamps last_logout and writes the audit trail.
func (s *Service) Logout(ctx context.Context, actor user.User) error {
	err := s.store.InTx(ctx, func(tx storage.TxStore) error {
		u, err := tx.GetUser(ctx, actor.ID)
		if err != nil {
			return err
		}
		u.LastLogout = time.Now().UTC()
		if _, err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		meta := audit.MetaFromContext(ctx)
		_, err = tx.AppendAudit(ctx, audit.Entry{
			UserID:    u.ID,
			Action:    audit.ActionLogout,
			Entity:    audit.EntityUser,
			EntityID:  u.ID,
			Details:   fmt.Sprintf("user %s logged out", u.Username),
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.log.WithContext(ctx).WithField("username", actor.Username).Info("user logged out")
	return nil
}

// Verify parses and validates a session token, returning the live account.
// Deactivation takes effect on the next request even for unexpired tokens.
func (s *Service) Verify(ctx context.Context, token string) (user.User, error) {
	claims, err := s.ParseToken(token)
	if err != nil {
		return user.User{}, err
	}
	u, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return user.User{}, errors.InvalidToken(err)
		}
		return user.User{}, err
	}
	if !u.Active() {
		return user.User{}, errors.Unauthorized("account is inactive")
	}
	return u, nil
}

// ParseToken validates signature and expiry and returns the claims.
func (s *Service) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, errors.InvalidToken(err)
	}
	if !parsed.Valid {
		return nil, errors.InvalidToken(fmt.Errorf("token is not valid"))
	}
	return claims, nil
}

func (s *Service) sign(u user.User, now, expiresAt time.Time) (string, error) {
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   fmt.Sprintf("%d", u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}
