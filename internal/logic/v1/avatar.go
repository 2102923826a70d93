package v1

import (
	"fmt"
	"strings"
)

// avatarDir is the object store prefix for all avatars.
const avatarDir = "avatars"

// AvatarObjectPath returns the object path for a user's avatar:
// avatars/{userID}_avatar.{ext}. The same user and extension always map to
// the same path, so a repeated upload overwrites instead of accumulating.
//
// ext is the part of filename after its last dot, lower-cased. When that is
// missing or not purely alphanumeric, the decoded image format is used.
func AvatarObjectPath(userID int64, filename, format string) string {
	return fmt.Sprintf("%s/%d_avatar.%s", avatarDir, userID, avatarExtension(filename, format))
}

// avatarExtension lower-cases the raw suffix so "photo.JPG" and "photo.jpg"
// share one object, and drops suffixes such as "png?x" that cannot appear in
// an object name safely. Both differ from taking the substring verbatim.
func avatarExtension(filename, format string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		ext := strings.ToLower(filename[i+1:])
		if ext != "" && isAlphanumeric(ext) {
			return ext
		}
	}
	return format
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
