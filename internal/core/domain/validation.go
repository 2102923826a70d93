package domain

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register jpeg
	_ "image/png"  // register png
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "golang.org/x/image/webp" // register webp
)

// Genders is the accepted gender enumeration.
var Genders = []string{"male", "female"}

// DefaultMaxAvatarBytes caps the avatar size when no limit is configured.
const DefaultMaxAvatarBytes = 1 << 20

const (
	minBirthYear = 1900
	minAge       = 18
)

var (
	personNamePattern = regexp.MustCompile(`^\p{L}[\p{L}\p{M}]*(?:[ '\-]\p{L}[\p{L}\p{M}]*)*$`)

	allowedImageFormats = map[string]bool{"jpeg": true, "png": true, "webp": true}
)

// InputValidator checks a ProfileInput before any side effect happens.
type InputValidator struct {
	validate       *validator.Validate
	maxAvatarBytes int
	now            func() time.Time
}

// NewInputValidator builds a validator with the profile rules registered.
// A non-positive maxAvatarBytes falls back to DefaultMaxAvatarBytes.
func NewInputValidator(maxAvatarBytes int, now func() time.Time) *InputValidator {
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = DefaultMaxAvatarBytes
	}
	if now == nil {
		now = time.Now
	}

	v := &InputValidator{
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		maxAvatarBytes: maxAvatarBytes,
		now:            now,
	}
	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// Registration only fails on empty tags or nil funcs.
	_ = v.validate.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		return slices.Contains(Genders, fl.Field().String())
	})
	_ = v.validate.RegisterValidation("birthdate", func(fl validator.FieldLevel) bool {
		return v.birthDateReason(fl.Field().String()) == ""
	})
	return v
}

// Validate returns a *ValidationError for the first failing field, checked
// in declaration order, followed by the avatar. On success it returns the
// decoded image format of the avatar ("jpeg", "png" or "webp").
func (v *InputValidator) Validate(in *ProfileInput) (string, error) {
	if err := v.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return "", fmt.Errorf("validate profile input: %w", err)
		}
		return "", v.toValidationError(verrs[0])
	}
	return v.validateAvatar(&in.Avatar)
}

func (v *InputValidator) validateAvatar(a *Avatar) (string, error) {
	if len(a.Data) == 0 {
		return "", &ValidationError{Field: "avatar", Reason: "avatar is required"}
	}
	if len(a.Data) > v.maxAvatarBytes {
		return "", &ValidationError{Field: "avatar", Reason: fmt.Sprintf("avatar must not exceed %d bytes", v.maxAvatarBytes)}
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(a.Data))
	if err != nil || !allowedImageFormats[format] {
		return "", &ValidationError{Field: "avatar", Reason: "avatar must be a JPEG, PNG or WebP image"}
	}
	if a.ContentType == "" || a.ContentType == "application/octet-stream" {
		a.ContentType = "image/" + format
	}
	return format, nil
}

func (v *InputValidator) toValidationError(fe validator.FieldError) *ValidationError {
	field := fe.Field()
	var reason string
	switch fe.Tag() {
	case "required":
		reason = field + " is required"
	case "max":
		reason = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "personname":
		reason = field + " may contain only letters, spaces, hyphens and apostrophes"
	case "gender":
		reason = fmt.Sprintf("gender must be one of %v", Genders)
	case "datetime":
		reason = "date_of_birth must be a date in YYYY-MM-DD format"
	case "birthdate":
		reason = v.birthDateReason(fe.Value().(string))
	default:
		reason = field + " is invalid"
	}
	return &ValidationError{Field: field, Reason: reason}
}

// birthDateReason returns an empty string for an acceptable date of birth.
func (v *InputValidator) birthDateReason(value string) string {
	dob, err := time.Parse(DateLayout, value)
	if err != nil {
		return "date_of_birth must be a date in YYYY-MM-DD format"
	}
	today := v.now().UTC()
	if dob.Year() < minBirthYear {
		return fmt.Sprintf("date_of_birth must not be before %d", minBirthYear)
	}
	if dob.After(today) {
		return "date_of_birth must not be in the future"
	}
	if dob.AddDate(minAge, 0, 0).After(today) {
		return fmt.Sprintf("user must be at least %d years old", minAge)
	}
	return ""
}
