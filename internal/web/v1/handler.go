package v1

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/duynhne/profile-service/internal/core/domain"
	logicv1 "github.com/duynhne/profile-service/internal/logic/v1"
	"github.com/duynhne/profile-service/middleware"
)

// multipartOverhead is the request size allowed on top of the avatar itself
// for the text fields and multipart framing.
const multipartOverhead = 1 << 20

// ProfileHandler handles HTTP requests for profile operations
type ProfileHandler struct {
	service            *logicv1.ProfileService
	maxAvatarBytes     int64
	legacyUnauthorized bool
}

// NewProfileHandler creates a new profile handler.
// With legacyUnauthorized set, a missing or inactive target user is answered
// with 401 instead of 404.
func NewProfileHandler(service *logicv1.ProfileService, maxAvatarBytes int, legacyUnauthorized bool) *ProfileHandler {
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = domain.DefaultMaxAvatarBytes
	}
	return &ProfileHandler{
		service:            service,
		maxAvatarBytes:     int64(maxAvatarBytes),
		legacyUnauthorized: legacyUnauthorized,
	}
}

// CreateProfile handles POST /api/v1/users/:user_id/profile
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.FullPath()),
	))
	defer span.End()

	zapLogger := middleware.GetLoggerFromGinContext(c)

	targetUserID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || targetUserID <= 0 {
		zapLogger.Warn("Invalid user_id path parameter", zap.String("user_id", c.Param("user_id")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}
	span.SetAttributes(attribute.Int64("user.id", targetUserID))

	requester, ok := requesterFromContext(c)
	if !ok {
		zapLogger.Warn("CreateProfile: no valid user_id in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	// Bound the whole body so oversized uploads never reach memory.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*h.maxAvatarBytes+multipartOverhead)

	var input domain.ProfileInput
	if err := c.ShouldBindWith(&input, binding.FormMultipart); err != nil {
		h.rejectRequest(c, span, zapLogger, err)
		return
	}
	avatar, err := h.readAvatar(c)
	if err != nil {
		h.rejectRequest(c, span, zapLogger, err)
		return
	}
	input.Avatar = avatar
	span.SetAttributes(attribute.Bool("request.valid", true))

	profile, err := h.service.CreateProfile(ctx, targetUserID, requester, input)
	if err != nil {
		span.RecordError(err)
		h.writeError(c, zapLogger, err)
		return
	}

	zapLogger.Info("Profile created",
		zap.Int64("user_id", profile.UserID),
		zap.Int64("profile_id", profile.ID),
		zap.Int64("requester_id", requester.ID),
	)
	c.JSON(http.StatusCreated, profile.ToResponse())
}

// readAvatar returns the uploaded avatar, or an empty one when the part is
// absent so the workflow reports it as a validation failure.
func (h *ProfileHandler) readAvatar(c *gin.Context) (domain.Avatar, error) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return domain.Avatar{}, nil
		}
		return domain.Avatar{}, fmt.Errorf("read avatar part: %w", err)
	}

	data, err := readPart(fh, h.maxAvatarBytes)
	if err != nil {
		return domain.Avatar{}, err
	}
	return domain.Avatar{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// readPart reads at most limit+1 bytes so the validator can still tell an
// oversized file apart from one at the limit.
func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open avatar: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	return data, nil
}

func (h *ProfileHandler) rejectRequest(c *gin.Context, span trace.Span, zapLogger *zap.Logger, err error) {
	span.SetAttributes(attribute.Bool("request.valid", false))
	span.RecordError(err)
	zapLogger.Warn("Invalid request", zap.Error(err))

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": sanitizeValidationError(err)})
}

// writeError maps workflow errors to HTTP responses.
func (h *ProfileHandler) writeError(c *gin.Context, zapLogger *zap.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		zapLogger.Info("Profile input rejected", zap.String("field", verr.Field), zap.String("reason", verr.Reason))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Reason, "field": verr.Field})
	case errors.Is(err, domain.ErrForbidden):
		zapLogger.Warn("Profile creation forbidden", zap.Error(err))
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to edit this profile."})
	case errors.Is(err, domain.ErrUserNotFound):
		zapLogger.Info("Target user unavailable", zap.Error(err))
		status := http.StatusNotFound
		if h.legacyUnauthorized {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"error": "User not found or not active."})
	case errors.Is(err, domain.ErrProfileExists):
		zapLogger.Info("Profile already exists", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already has a profile."})
	case errors.Is(err, domain.ErrProfileConflict):
		zapLogger.Warn("Concurrent profile creation lost", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "User already has a profile."})
	case errors.Is(err, domain.ErrUploadFailed):
		zapLogger.Error("Failed to create profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload avatar. Please try again later."})
	default:
		zapLogger.Error("Failed to create profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// requesterFromContext builds the requester from values set by AuthMiddleware.
func requesterFromContext(c *gin.Context) (domain.Requester, bool) {
	id, err := strconv.ParseInt(c.GetString(middleware.CtxUserIDKey), 10, 64)
	if err != nil {
		return domain.Requester{}, false
	}
	return domain.Requester{
		ID:    id,
		Roles: c.GetStringSlice(middleware.CtxRolesKey),
	}, true
}
