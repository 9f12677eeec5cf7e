// Package auth implements registration, login, and bearer-token
// verification. Passwords are hashed with bcrypt and sessions are JWTs
// backed by a server-side revocation row, so a token can be invalidated
// before its expiry by deleting the matching session.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"trading-core/internal/apperr"
	"trading-core/pkg/crypto"
	"trading-core/pkg/db"
)

const sessionTTL = 72 * time.Hour

// startingBalances is minted into a new principal's wallet on
// registration, matching the fixed faucet amounts this deployment seeds
// every account with.
var startingBalances = map[string]float64{
	"CRWN": 1_000_000,
	"USDT": 500_000,
	"ETH":  100,
	"BTC":  5,
	"KRW":  100_000_000,
}

// Claims is the JWT payload issued on login/register.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Service wires password hashing, JWT signing, and session persistence
// around the user and session tables.
type Service struct {
	db     *db.Database
	secret string
}

// New builds an auth service signing tokens with secret.
func New(database *db.Database, secret string) *Service {
	return &Service{db: database, secret: secret}
}

// Register creates a principal, mints the starting wallet balances, and
// returns a signed session token the same as Login would.
func (s *Service) Register(ctx context.Context, email, username, password string) (db.User, string, time.Time, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return db.User{}, "", time.Time{}, apperr.New(apperr.KindBadInput, "email, username, and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return db.User{}, "", time.Time{}, apperr.New(apperr.KindBadInput, "invalid email format")
	}

	q := s.db.Queries()
	if _, err := q.GetUserByEmail(ctx, email); err == nil {
		return db.User{}, "", time.Time{}, apperr.New(apperr.KindConflict, "email already registered")
	} else if !errors.Is(err, db.ErrNotFound) {
		return db.User{}, "", time.Time{}, err
	}
	if _, err := q.GetUserByUsername(ctx, username); err == nil {
		return db.User{}, "", time.Time{}, apperr.New(apperr.KindConflict, "username already registered")
	} else if !errors.Is(err, db.ErrNotFound) {
		return db.User{}, "", time.Time{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return db.User{}, "", time.Time{}, apperr.Wrap(apperr.KindCryptographic, "hashing password", err)
	}

	now := time.Now()
	user := db.User{
		ID: uuid.NewString(), Email: email, Username: username,
		Password: string(hash), Role: "user", CreatedAt: now,
	}

	err = s.db.Transaction(ctx, func(q *db.Queries) error {
		if err := q.CreateUser(ctx, user); err != nil {
			return err
		}
		for token, amount := range startingBalances {
			if err := q.AddBalance(ctx, user.ID, token, amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return db.User{}, "", time.Time{}, err
	}

	token, expiresAt, err := s.issueSession(ctx, user.ID)
	return user, token, expiresAt, err
}

// Login verifies credentials by email or username and returns a fresh
// session token.
func (s *Service) Login(ctx context.Context, emailOrUsername, password string) (db.User, string, time.Time, error) {
	emailOrUsername = strings.TrimSpace(emailOrUsername)
	q := s.db.Queries()

	var user db.User
	var err error
	if strings.Contains(emailOrUsername, "@") {
		user, err = q.GetUserByEmail(ctx, emailOrUsername)
	} else {
		user, err = q.GetUserByUsername(ctx, emailOrUsername)
	}
	if errors.Is(err, db.ErrNotFound) {
		return db.User{}, "", time.Time{}, apperr.New(apperr.KindInvalidCredentials, "invalid credentials")
	}
	if err != nil {
		return db.User{}, "", time.Time{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return db.User{}, "", time.Time{}, apperr.New(apperr.KindInvalidCredentials, "invalid credentials")
	}

	if err := q.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		return db.User{}, "", time.Time{}, err
	}

	token, expiresAt, err := s.issueSession(ctx, user.ID)
	return user, token, expiresAt, err
}

func (s *Service) issueSession(ctx context.Context, userID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(sessionTTL)

	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, apperr.Wrap(apperr.KindCryptographic, "signing session token", err)
	}

	err = s.db.Queries().CreateSession(ctx, db.Session{
		ID: uuid.NewString(), UserID: userID, TokenHash: crypto.HashToken(token),
		CreatedAt: now, ExpiresAt: expiresAt,
	})
	return token, expiresAt, err
}

// Verify checks a bearer token's signature, expiry, and that a live
// session row still backs it (so a revoked token is rejected even
// before its JWT expiry).
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(s.secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", apperr.New(apperr.KindAuthRequired, "invalid or expired token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return "", apperr.New(apperr.KindAuthRequired, "invalid token claims")
	}

	session, err := s.db.Queries().GetSessionByTokenHash(ctx, crypto.HashToken(token))
	if errors.Is(err, db.ErrNotFound) {
		return "", apperr.New(apperr.KindAuthRequired, "session revoked")
	}
	if err != nil {
		return "", err
	}
	if time.Now().After(session.ExpiresAt) {
		return "", apperr.New(apperr.KindAuthRequired, "session expired")
	}
	return claims.UserID, nil
}

// Logout deletes the session row backing token, so Verify rejects it
// immediately regardless of JWT expiry.
func (s *Service) Logout(ctx context.Context, token string) error {
	session, err := s.db.Queries().GetSessionByTokenHash(ctx, crypto.HashToken(token))
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.Queries().DeleteSession(ctx, session.ID)
}

// SweepExpired deletes every session row past its expiry. Called by a
// background ticker, matching §5's session cleanup requirement.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.db.Queries().SweepExpiredSessions(ctx, time.Now())
}
