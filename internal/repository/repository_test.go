package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapErr(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, ErrNotFound},
	}
	for _, tc := range cases {
		if got := mapErr(tc.in); !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	other := errors.New("boom")
	if got := mapErr(other); got != other {
		t.Fatalf("expected unrelated errors to pass through, got %v", got)
	}
	if mapErr(nil) != nil {
		t.Fatalf("expected nil to stay nil")
	}
}

func TestAffected(t *testing.T) {
	if err := affected(pgconn.NewCommandTag("DELETE 0"), nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for zero rows, got %v", err)
	}
	if err := affected(pgconn.NewCommandTag("DELETE 1"), nil); err != nil {
		t.Fatalf("expected nil for one row, got %v", err)
	}
}
