package v1

import "testing"

func TestAvatarObjectPath(t *testing.T) {
	tests := []struct {
		filename string
		format   string
		want     string
	}{
		{"me.jpg", "jpeg", "avatars/5_avatar.jpg"},
		{"Me.PNG", "png", "avatars/5_avatar.png"},
		{"holiday.photo.jpeg", "jpeg", "avatars/5_avatar.jpeg"},
		{"noextension", "jpeg", "avatars/5_avatar.jpeg"},
		{"trailingdot.", "png", "avatars/5_avatar.png"},
		{"weird.j/pg", "webp", "avatars/5_avatar.webp"},
	}

	for _, tt := range tests {
		if got := AvatarObjectPath(5, tt.filename, tt.format); got != tt.want {
			t.Errorf("AvatarObjectPath(5, %q, %q) = %q, want %q", tt.filename, tt.format, got, tt.want)
		}
	}
}

func TestAvatarObjectPath_Idempotent(t *testing.T) {
	first := AvatarObjectPath(42, "a.png", "png")
	second := AvatarObjectPath(42, "b.png", "png")
	if first != second {
		t.Fatalf("expected the same path for the same user and extension, got %q and %q", first, second)
	}
}
