package v1

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/duynhne/profile-service/internal/core/domain"
)

type mockDirectory struct {
	users map[int64]domain.TargetUser
	err   error
	calls int
}

func (m *mockDirectory) FindUserByID(_ context.Context, id int64) (*domain.TargetUser, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

type mockProfiles struct {
	inserted []domain.Profile
	err      error
}

func (m *mockProfiles) Insert(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	stored := *p
	stored.ID = int64(len(m.inserted) + 1)
	m.inserted = append(m.inserted, stored)
	return &stored, nil
}

type mockStore struct {
	paths []string
	err   error
}

func (m *mockStore) Upload(_ context.Context, _ []byte, objectPath, _ string) (string, error) {
	m.paths = append(m.paths, objectPath)
	if m.err != nil {
		return "", m.err
	}
	return "https://storage.googleapis.com/profiles/" + objectPath, nil
}

type fixture struct {
	dir      *mockDirectory
	profiles *mockProfiles
	store    *mockStore
	svc      *ProfileService
}

func newFixture(users ...domain.TargetUser) *fixture {
	dir := &mockDirectory{users: map[int64]domain.TargetUser{}}
	for _, u := range users {
		dir.users[u.ID] = u
	}
	f := &fixture{dir: dir, profiles: &mockProfiles{}, store: &mockStore{}}
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	f.svc = NewProfileService(f.dir, f.profiles, f.store,
		domain.NewInputValidator(0, func() time.Time { return now }), nil)
	return f
}

func jpegAvatar(t *testing.T) domain.Avatar {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return domain.Avatar{Filename: "photo.JPG", ContentType: "image/jpeg", Data: buf.Bytes()}
}

func validInput(t *testing.T) domain.ProfileInput {
	t.Helper()
	return domain.ProfileInput{
		FirstName:   "Ann",
		LastName:    "Lee",
		Gender:      "female",
		DateOfBirth: "1990-05-01",
		Info:        "hello",
		Avatar:      jpegAvatar(t),
	}
}

func activeUser(id int64) domain.TargetUser {
	return domain.TargetUser{ID: id, Active: true}
}

func TestCreateProfile_Self(t *testing.T) {
	f := newFixture(activeUser(5))

	p, err := f.svc.CreateProfile(context.Background(), 5, domain.Requester{ID: 5}, validInput(t))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.ID <= 0 {
		t.Fatalf("expected positive id, got %d", p.ID)
	}
	if p.UserID != 5 || p.FirstName != "Ann" || p.Gender != "female" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if got := p.DateOfBirth.Format(domain.DateLayout); got != "1990-05-01" {
		t.Fatalf("unexpected date of birth %q", got)
	}
	if want := "https://storage.googleapis.com/profiles/avatars/5_avatar.jpg"; p.Avatar != want {
		t.Fatalf("expected avatar %q, got %q", want, p.Avatar)
	}
	if len(f.profiles.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(f.profiles.inserted))
	}
}

func TestCreateProfile_AdminOverride(t *testing.T) {
	f := newFixture(activeUser(5))

	p, err := f.svc.CreateProfile(context.Background(), 5,
		domain.Requester{ID: 1, Roles: []string{domain.RoleAdmin}}, validInput(t))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.UserID != 5 {
		t.Fatalf("expected profile for user 5, got %d", p.UserID)
	}
}

func TestCreateProfile_Forbidden(t *testing.T) {
	f := newFixture(activeUser(5))

	_, err := f.svc.CreateProfile(context.Background(), 5,
		domain.Requester{ID: 7, Roles: []string{"staff"}}, validInput(t))
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if f.dir.calls != 0 || len(f.store.paths) != 0 || len(f.profiles.inserted) != 0 {
		t.Fatalf("expected no collaborator calls, got dir=%d uploads=%d inserts=%d",
			f.dir.calls, len(f.store.paths), len(f.profiles.inserted))
	}
}

func TestCreateProfile_UserNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateProfile(context.Background(), 5, domain.Requester{ID: 5}, validInput(t))
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(f.store.paths) != 0 {
		t.Fatalf("expected no upload")
	}
}

func TestCreateProfile_InactiveUserFailsBeforeValidation(t *testing.T) {
	f := newFixture(domain.TargetUser{ID: 5, Active: false})
	in := validInput(t)
	in.Gender = "x"

	_, err := f.svc.CreateProfile(context.Background(), 5, domain.Requester{ID: 5}, in)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		t.Fatalf("validation must not run for inactive users")
	}
	if len(f.store.paths) != 0 {
		t.Fatalf("expected no upload")
	}
}

func TestCreateProfile_AlreadyHasProfile(t *testing.T) {
	profileID := int64(11)
	f := newFixture(domain.TargetUser{ID: 5, Active: true, ProfileID: &profileID})

	_, err := f.svc.CreateProfile(context.Background(), 5, domain.Requester{ID: 5}, validInput(t))
	if !errors.Is(err, domain.ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}
	if len(f.store.paths) != 0 {
		t.Fatalf("expected no upload, got %v", f.store.paths)
	}
}

func TestCreateProfile_InvalidGender(t *testing.T) {
	f := newFixture(activeUser(5))
	in := validInput(t)
	in.Gender = "x"

	_, err := f.svc.CreateProfile(context.Background(), 5, domain.Requester{ID: 5}, in)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "gender" {
		t.Fatalf("expected field gender, got %q", verr.Field)
	}
	if len(f.store.paths) != 0 {
		t.Fatalf("expected no upload")
	}
}

func TestCreateProfile_FutureBirthDate(t *testing.T) {
	f := newFixture(activeUser(5))
	in := validInput(t)
	in.DateOfBirth = "2031-01-01"

	_, err := f.svc.CreateProfile(context.Background(), 5, domain.Requester{ID: 5}, in)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "date_of_birth" {
		t.Fatalf("expected date_of_birth ValidationError, got %v", err)
	}
	if len(f.store.paths) != 0 {
		t.Fatalf("expected no upload")
	}
}

func TestCreateProfile_UploadFailed(t *testing.T) {
	f := newFixture(activeUser(5))
	cause := errors.New("bucket quota exceeded")
	f.store.err = cause

	_, err := f.svc.CreateProfile(context.Background(), 5, domain.Requester{ID: 5}, validInput(t))
	if !errors.Is(err, domain.ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if errors.Is(err, cause) {
		t.Fatalf("upload cause must not be surfaced")
	}
	if len(f.profiles.inserted) != 0 {
		t.Fatalf("expected no insert after failed upload")
	}
}

func TestCreateProfile_InsertConflict(t *testing.T) {
	f := newFixture(activeUser(5))
	f.profiles.err = domain.ErrProfileConflict

	_, err := f.svc.CreateProfile(context.Background(), 5, domain.Requester{ID: 5}, validInput(t))
	if !errors.Is(err, domain.ErrProfileConflict) {
		t.Fatalf("expected ErrProfileConflict, got %v", err)
	}
	if len(f.store.paths) != 1 {
		t.Fatalf("expected the avatar to have been uploaded once, got %d", len(f.store.paths))
	}
}

func TestCreateProfile_DirectoryError(t *testing.T) {
	f := newFixture(activeUser(5))
	f.dir.err = errors.New("connection reset")

	_, err := f.svc.CreateProfile(context.Background(), 5, domain.Requester{ID: 5}, validInput(t))
	if err == nil || errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected a non-domain error, got %v", err)
	}
	if len(f.store.paths) != 0 {
		t.Fatalf("expected no upload")
	}
}
