package gcs

import "testing"

func TestObjectURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		bucket  string
		path    string
		want    string
	}{
		{
			name:    "plain avatar path",
			baseURL: "https://storage.googleapis.com",
			bucket:  "profiles",
			path:    "avatars/5_avatar.jpg",
			want:    "https://storage.googleapis.com/profiles/avatars/5_avatar.jpg",
		},
		{
			name:    "segments are escaped, separators kept",
			baseURL: "http://localhost:4443",
			bucket:  "profiles",
			path:    "avatars/5_avatar.my pic",
			want:    "http://localhost:4443/profiles/avatars/5_avatar.my%20pic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := objectURL(tt.baseURL, tt.bucket, tt.path); got != tt.want {
				t.Fatalf("objectURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
