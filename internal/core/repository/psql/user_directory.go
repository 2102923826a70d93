package psql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/profile-service/internal/core/domain"
	"github.com/duynhne/profile-service/middleware"
)

// UserDirectory implements domain.UserDirectory using PostgreSQL.
// The users table is owned by the auth service; this service only reads it.
type UserDirectory struct {
	pool *pgxpool.Pool
}

// NewUserDirectory creates a new PostgreSQL user directory
func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

// FindUserByID loads the user together with the ID of its linked profile, if any.
func (d *UserDirectory) FindUserByID(ctx context.Context, id int64) (*domain.TargetUser, error) {
	ctx, span := middleware.StartSpan(ctx, "users.find_by_id", trace.WithAttributes(
		attribute.String("layer", "repository"),
		attribute.Int64("user.id", id),
	))
	defer span.End()

	query := `SELECT u.id, u.is_active, p.id
		FROM users u
		LEFT JOIN user_profiles p ON p.user_id = u.id
		WHERE u.id = $1`

	var user domain.TargetUser
	err := d.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Active, &user.ProfileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetAttributes(attribute.Bool("user.found", false))
			return nil, fmt.Errorf("find user %d: %w", id, domain.ErrUserNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("query user: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("user.found", true),
		attribute.Bool("user.active", user.Active),
	)
	return &user, nil
}
