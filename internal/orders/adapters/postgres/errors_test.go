package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestViolationHelpers(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	foreign := &pgconn.PgError{Code: "23503"}

	tests := []struct {
		name       string
		err        error
		wantUnique bool
		wantFK     bool
	}{
		{"unique", unique, true, false},
		{"wrapped unique", fmt.Errorf("copy: %w", unique), true, false},
		{"foreign key", foreign, false, true},
		{"other pg error", &pgconn.PgError{Code: "42P01"}, false, false},
		{"plain error", errors.New("boom"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.wantUnique {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.wantUnique)
			}
			if got := isForeignKeyViolation(tt.err); got != tt.wantFK {
				t.Errorf("isForeignKeyViolation() = %v, want %v", got, tt.wantFK)
			}
		})
	}
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"cancel", `%cancel%`},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`back\slash`, `%back\\slash%`},
		{"", `%%`},
	}

	for _, tt := range tests {
		if got := likePattern(tt.term); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.term, got, tt.want)
		}
	}
}
