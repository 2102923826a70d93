package v1

import "strings"

// sanitizeValidationError returns a user-friendly message for binding errors.
// Never expose raw gin/multipart parser errors to clients.
func sanitizeValidationError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.Contains(msg, "multipart") ||
		strings.Contains(msg, "boundary") ||
		strings.Contains(msg, "Content-Type") ||
		strings.Contains(msg, "bind") ||
		strings.Contains(msg, "Key:") {
		return "Invalid request"
	}
	// Short, safe messages can pass through
	if len(msg) < 100 && !strings.Contains(msg, "Error:") {
		return msg
	}
	return "Invalid request"
}
