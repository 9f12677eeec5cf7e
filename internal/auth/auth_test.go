package auth

import (
	"context"
	"testing"

	"trading-core/internal/apperr"
	"trading-core/pkg/db"
)

func newTestService(t *testing.T) (*Service, *db.Database) {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	return New(database, "test-secret"), database
}

func TestRegisterMintsStartingBalances(t *testing.T) {
	s, database := newTestService(t)
	ctx := context.Background()

	user, token, _, err := s.Register(ctx, "a@a.com", "a", "abcdef")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	for symbol, want := range startingBalances {
		w, err := database.Queries().GetWallet(ctx, user.ID, symbol)
		if err != nil {
			t.Fatalf("GetWallet(%s): %v", symbol, err)
		}
		if w.Balance != want {
			t.Errorf("%s balance = %v, want %v", symbol, w.Balance, want)
		}
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if _, _, _, err := s.Register(ctx, "a@a.com", "a", "abcdef"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, _, _, err := s.Register(ctx, "a@a.com", "b", "abcdef")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected KindConflict, got %v", err)
	}
}

func TestLoginWithEmailOrUsername(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	if _, _, _, err := s.Register(ctx, "a@a.com", "alice", "abcdef"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, _, err := s.Login(ctx, "a@a.com", "abcdef"); err != nil {
		t.Errorf("login by email: %v", err)
	}
	if _, _, _, err := s.Login(ctx, "alice", "abcdef"); err != nil {
		t.Errorf("login by username: %v", err)
	}
	if _, _, _, err := s.Login(ctx, "alice", "wrong"); !apperr.Is(err, apperr.KindInvalidCredentials) {
		t.Errorf("expected KindInvalidCredentials, got %v", err)
	}
}

func TestVerifyRejectsTokenAfterLogout(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	_, token, _, err := s.Register(ctx, "a@a.com", "alice", "abcdef")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	userID, err := s.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID == "" {
		t.Fatal("expected a resolved user id")
	}

	if err := s.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := s.Verify(ctx, token); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("expected KindAuthRequired after logout, got %v", err)
	}
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	s, _ := newTestService(t)
	if _, err := s.Verify(context.Background(), "not-a-token"); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("expected KindAuthRequired, got %v", err)
	}
}
