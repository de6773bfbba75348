package repository

import (
	"context"
	"errors"
	"testing"

	"stockino/internal/database/dbtest"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestSequenceNext(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewSequenceRepository(db)
	txm := NewTransactionManager(db)
	ctx := context.Background()
	orgA, orgB := uuid.New(), uuid.New()

	steps := []struct {
		org   uuid.UUID
		scope string
		year  int
		want  int64
	}{
		{orgA, "receipt:exit", 2025, 1},
		{orgA, "receipt:exit", 2025, 2},
		{orgA, "receipt:entry", 2025, 1},
		{orgA, "receipt:exit", 2026, 1},
		{orgB, "receipt:exit", 2025, 1},
		{orgA, "receipt:exit", 2025, 3},
	}

	for i, s := range steps {
		var got int64
		err := txm.RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			got, err = repo.Next(txCtx, s.org, s.scope, s.year)
			return err
		})
		if err != nil {
			t.Fatalf("step %d: Next() error = %v", i, err)
		}
		if got != s.want {
			t.Errorf("step %d: Next(%s, %d) = %d, want %d", i, s.scope, s.year, got, s.want)
		}
	}
}

func TestIsUndefinedTable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"postgres code", &pgconn.PgError{Code: "42P01"}, true},
		{"postgres other code", &pgconn.PgError{Code: "23505"}, false},
		{"sqlite message", errors.New("no such table: sales"), true},
		{"postgres message", errors.New(`relation "sales" does not exist`), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUndefinedTable(tt.err); got != tt.want {
				t.Errorf("IsUndefinedTable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("expected 23505 to be a unique violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: profiles.email")) {
		t.Error("expected sqlite unique message to match")
	}
	if IsUniqueViolation(errors.New("timeout")) {
		t.Error("timeout is not a unique violation")
	}
}
