//go:build !integration

package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"membership-checkout/internal/domain"
)

func TestMapErr(t *testing.T) {
	if err := mapErr("op", pgx.ErrNoRows); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mapErr("op", &pgconn.PgError{Code: pgUniqueViolation}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if err := mapErr("op", errors.New("conn reset")); domain.KindOf(err) != domain.KindIntegrity {
		t.Errorf("expected an integrity error, got %v", err)
	}
	if err := mapErr("op", domain.ErrInvalidExecContext); err != domain.ErrInvalidExecContext {
		t.Errorf("exec context errors should pass through, got %v", err)
	}
	if mapErr("op", nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestGetExecutor(t *testing.T) {
	if _, err := getExecutor(nil, nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument without a pool, got %v", err)
	}
	if _, err := getExecutor(nil, "not-a-tx"); !errors.Is(err, domain.ErrInvalidExecContext) {
		t.Errorf("expected ErrInvalidExecContext, got %v", err)
	}
	if got := forUpdate("SELECT 1", nil); got != "SELECT 1" {
		t.Errorf("no lock outside a transaction, got %q", got)
	}
}

func TestHashToInt64(t *testing.T) {
	if hashToInt64("user-1") != hashToInt64("user-1") {
		t.Error("hash must be stable")
	}
	if hashToInt64("user-1") == hashToInt64("user-2") {
		t.Error("distinct users should hash apart")
	}
}
