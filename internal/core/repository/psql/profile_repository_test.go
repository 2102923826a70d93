package psql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/duynhne/profile-service/internal/core/domain"
)

func TestInsertError(t *testing.T) {
	plain := errors.New("connection reset by peer")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "user_profiles_user_id_key"}, domain.ErrProfileConflict},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, domain.ErrUserNotFound},
		{"wrapped unique violation", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "23505"}), domain.ErrProfileConflict},
		{"other postgres error", &pgconn.PgError{Code: "23502"}, nil},
		{"plain error", plain, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := insertError(7, tt.err)
			if tt.want != nil {
				if !errors.Is(got, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
				return
			}
			if errors.Is(got, domain.ErrProfileConflict) || errors.Is(got, domain.ErrUserNotFound) {
				t.Fatalf("expected an unmapped error, got %v", got)
			}
			if !errors.Is(got, tt.err) {
				t.Fatalf("expected cause to be preserved, got %v", got)
			}
		})
	}
}
