package v1

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/duynhne/profile-service/internal/core/domain"
	"github.com/duynhne/profile-service/middleware"
)

// ProfileService implements the profile creation workflow
type ProfileService struct {
	users     domain.UserDirectory
	profiles  domain.ProfileRepository
	store     domain.ObjectStore
	validator *domain.InputValidator
	logger    *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(
	users domain.UserDirectory,
	profiles domain.ProfileRepository,
	store domain.ObjectStore,
	validator *domain.InputValidator,
	logger *zap.Logger,
) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		users:     users,
		profiles:  profiles,
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CreateProfile attaches a validated profile and avatar to an existing,
// active, profile-less user. Steps run in order and the first failure ends
// the call:
//
//  1. requester must be the target user or an admin (ErrForbidden)
//  2. target must exist and be active (ErrUserNotFound)
//  3. target must not have a profile yet (ErrProfileExists)
//  4. every input field must validate (*domain.ValidationError)
//  5. avatar upload (ErrUploadFailed, cause is only logged)
//  6. transactional insert (ErrProfileConflict on a lost uniqueness race)
//
// An avatar uploaded before a failed insert is not removed.
func (s *ProfileService) CreateProfile(ctx context.Context, targetUserID int64, requester domain.Requester, in domain.ProfileInput) (*domain.Profile, error) {
	ctx, span := middleware.StartSpan(ctx, "profile.create", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int64("user.id", targetUserID),
		attribute.Int64("requester.id", requester.ID),
	))
	defer span.End()

	if requester.ID != targetUserID && !requester.HasRole(domain.RoleAdmin) {
		return nil, s.fail(span, "forbidden",
			fmt.Errorf("requester %d creating profile for user %d: %w", requester.ID, targetUserID, domain.ErrForbidden))
	}

	user, err := s.users.FindUserByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, s.fail(span, "user_not_found", err)
		}
		middleware.RecordError(ctx, err)
		return nil, s.fail(span, "error", fmt.Errorf("lookup user %d: %w", targetUserID, err))
	}
	if !user.Active {
		return nil, s.fail(span, "user_not_found",
			fmt.Errorf("user %d is inactive: %w", targetUserID, domain.ErrUserNotFound))
	}
	if user.HasProfile() {
		return nil, s.fail(span, "profile_exists",
			fmt.Errorf("user %d: %w", targetUserID, domain.ErrProfileExists))
	}

	format, err := s.validator.Validate(&in)
	if err != nil {
		return nil, s.fail(span, "invalid_input", err)
	}
	dob, err := time.Parse(domain.DateLayout, in.DateOfBirth)
	if err != nil {
		return nil, s.fail(span, "invalid_input", &domain.ValidationError{Field: "date_of_birth", Reason: err.Error()})
	}

	objectPath := AvatarObjectPath(targetUserID, in.Avatar.Filename, format)
	avatarURL, err := s.store.Upload(ctx, in.Avatar.Data, objectPath, in.Avatar.ContentType)
	if err != nil {
		middleware.RecordError(ctx, err)
		s.logger.Error("Avatar upload failed",
			zap.Int64("user_id", targetUserID),
			zap.String("object", objectPath),
			zap.Error(err),
		)
		return nil, s.fail(span, "upload_failed", fmt.Errorf("upload %s: %w", objectPath, domain.ErrUploadFailed))
	}
	middleware.AddSpanEvent(ctx, "avatar.uploaded", attribute.String("storage.object", objectPath))

	stored, err := s.profiles.Insert(ctx, &domain.Profile{
		UserID:      targetUserID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Gender:      in.Gender,
		DateOfBirth: dob,
		Info:        in.Info,
		Avatar:      avatarURL,
	})
	if err != nil {
		middleware.RecordError(ctx, err)
		s.logger.Warn("Profile insert failed, avatar left in storage",
			zap.Int64("user_id", targetUserID),
			zap.String("object", objectPath),
			zap.Error(err),
		)
		outcome := "error"
		if errors.Is(err, domain.ErrProfileConflict) {
			outcome = "conflict"
		}
		return nil, s.fail(span, outcome, fmt.Errorf("persist profile for user %d: %w", targetUserID, err))
	}

	span.SetAttributes(
		attribute.String("profile.outcome", "created"),
		attribute.Int64("profile.id", stored.ID),
	)
	middleware.RecordProfileCreation("created")
	return stored, nil
}

func (s *ProfileService) fail(span trace.Span, outcome string, err error) error {
	span.SetAttributes(attribute.String("profile.outcome", outcome))
	middleware.RecordProfileCreation(outcome)
	return err
}
