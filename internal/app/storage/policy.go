package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/randx"
)

const (
	// MaxUploadSizeMB is the maximum allowed file size in megabytes.
	MaxUploadSizeMB = 5

	// MaxUploadSize is the maximum allowed file size in bytes.
	MaxUploadSize = MaxUploadSizeMB * 1024 * 1024

	// PresignedURLDuration is how long an issued upload or download URL stays valid.
	PresignedURLDuration = 5 * time.Minute
)

// AllowedMIMETypes defines the set of permitted MIME types for uploads.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"image/gif":       {},
	"application/pdf": {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// AvatarScope is the key prefix for a user's avatars.
func AvatarScope(userID string) string { return "avatars/" + userID }

// ChatScope is the key prefix for a chat's attachments.
func ChatScope(chatID string) string { return "chats/" + chatID }

// AchievementScope is the key prefix for achievement art.
const AchievementScope = "achievements"

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxUploadSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, MaxUploadSizeMB)
	}

	return nil
}

// ValidateFileType checks that the MIME type is allowed and agrees with the file extension.
// When imagesOnly is set, only image/* types pass.
func ValidateFileType(fileName string, mimeType string, imagesOnly bool) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	if imagesOnly && !strings.HasPrefix(lowerMimeType, "image/") {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}

// NewObjectKey returns a fresh key "<scope>/<uuid><ext>" for fileName.
func NewObjectKey(scope, fileName string) string {
	return fmt.Sprintf("%s/%s%s", scope, randx.ID(), strings.ToLower(filepath.Ext(fileName)))
}

// KeyInScope reports whether key is a clean object key directly under scope.
func KeyInScope(key, scope string) bool {
	if !strings.HasPrefix(key, scope+"/") {
		return false
	}
	if path.Clean(key) != key || strings.Contains(key, "..") {
		return false
	}
	return path.Dir(key) == scope
}

// PublicURL joins the asset base URL and key. Without a base URL the key is returned as is.
func PublicURL(baseURL, key string) string {
	if baseURL == "" {
		return key
	}
	return strings.TrimRight(baseURL, "/") + "/" + key
}

// KeyFromPublicURL reverses PublicURL. It returns "" when u was not built from baseURL.
func KeyFromPublicURL(baseURL, u string) string {
	if baseURL == "" {
		return u
	}
	prefix := strings.TrimRight(baseURL, "/") + "/"
	if !strings.HasPrefix(u, prefix) {
		return ""
	}
	return strings.TrimPrefix(u, prefix)
}
