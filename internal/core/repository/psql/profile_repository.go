package psql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/profile-service/internal/core/domain"
	"github.com/duynhne/profile-service/middleware"
)

// PostgreSQL error codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ProfileRepository implements domain.ProfileRepository using PostgreSQL
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new PostgreSQL profile repository
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Insert stores the profile in its own transaction. The returned profile is
// read back by RETURNING inside the same transaction.
func (r *ProfileRepository) Insert(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	ctx, span := middleware.StartSpan(ctx, "user_profiles.insert", trace.WithAttributes(
		attribute.String("layer", "repository"),
		attribute.Int64("user.id", profile.UserID),
	))
	defer span.End()

	query := `INSERT INTO user_profiles (user_id, first_name, last_name, gender, date_of_birth, info, avatar)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, first_name, last_name, gender, date_of_birth, info, avatar`

	var stored domain.Profile
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query,
			profile.UserID,
			profile.FirstName,
			profile.LastName,
			profile.Gender,
			profile.DateOfBirth,
			profile.Info,
			profile.Avatar,
		).Scan(
			&stored.ID,
			&stored.UserID,
			&stored.FirstName,
			&stored.LastName,
			&stored.Gender,
			&stored.DateOfBirth,
			&stored.Info,
			&stored.Avatar,
		)
	})
	if err != nil {
		span.RecordError(err)
		return nil, insertError(profile.UserID, err)
	}

	span.SetAttributes(attribute.Int64("profile.id", stored.ID))
	return &stored, nil
}

// insertError maps constraint violations to domain errors: a second profile
// for the same user is a conflict, a vanished user is not found.
func insertError(userID int64, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("insert profile for user %d: %w", userID, domain.ErrProfileConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("insert profile for user %d: %w", userID, domain.ErrUserNotFound)
		}
	}
	return fmt.Errorf("insert user profile: %w", err)
}
