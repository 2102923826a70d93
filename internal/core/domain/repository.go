package domain

import "context"

// UserDirectory resolves target users. It returns ErrUserNotFound when no
// user has the given ID.
type UserDirectory interface {
	FindUserByID(ctx context.Context, id int64) (*TargetUser, error)
}

// ProfileRepository persists new profiles. Insert runs in a single
// transaction and returns the stored row as read inside that transaction.
type ProfileRepository interface {
	Insert(ctx context.Context, profile *Profile) (*Profile, error)
}

// ObjectStore stores binary objects and returns their public URL.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, objectPath, contentType string) (string, error)
}
