package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/domain"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg_23505", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pg_other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite", errors.New("UNIQUE constraint failed: users.email"), true},
		{"gorm", gorm.ErrDuplicatedKey, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err); got != tc.want {
				t.Fatalf("IsUniqueViolation: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestMapError(t *testing.T) {
	if err := MapError(gorm.ErrRecordNotFound); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("record not found: got=%v", err)
	}
	if err := MapError(&pgconn.PgError{Code: "40001"}); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("serialization failure: got=%v", err)
	}
	plain := errors.New("boom")
	if err := MapError(plain); err != plain {
		t.Fatalf("plain error should pass through, got=%v", err)
	}
	if MapError(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}
