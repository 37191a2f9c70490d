package services

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ClientError marks failures caused by bad input; controllers map it to the
// given HTTP status instead of a 500.
type ClientError struct {
	Status  int
	Message string
}

func (e *ClientError) Error() string { return e.Message }

func NewClientError(status int, format string, args ...any) *ClientError {
	return &ClientError{Status: status, Message: fmt.Sprintf(format, args...)}
}

var userIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// NormalizeUserID turns an arbitrary user identifier into a filesystem-safe
// path component. Path-traversal shapes are rejected outright rather than
// sanitized.
func NormalizeUserID(userID string) (string, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return "", NewClientError(400, "user_id must not be empty")
	}
	if strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, `\`) {
		return "", NewClientError(400, "user_id must not be an absolute path")
	}
	if strings.Contains(trimmed, "..") {
		return "", NewClientError(400, "user_id must not contain path traversal sequences")
	}
	normalized := userIDSanitizer.ReplaceAllString(trimmed, "_")
	if strings.Trim(normalized, "_") == "" {
		return "", NewClientError(400, "user_id contains no usable characters")
	}
	return normalized, nil
}

// EnsureWithinBase verifies that joining base with the already-normalized
// parts stays inside base. Purely lexical, a second line of defense after
// NormalizeUserID.
func EnsureWithinBase(base string, parts ...string) (string, error) {
	joined := filepath.Join(append([]string{base}, parts...)...)
	cleanBase := filepath.Clean(base)
	if joined != cleanBase && !strings.HasPrefix(joined, cleanBase+string(filepath.Separator)) {
		return "", NewClientError(400, "resolved path escapes the storage directory")
	}
	return joined, nil
}
