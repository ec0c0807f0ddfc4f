package storage

import (
	"context"
	"encoding/hex"
	"io"
	"path"
	"strings"
)

// MaxImageSize is the maximum allowed candidate image size (5MB).
const MaxImageSize = 5 * 1024 * 1024

// FolderCandidates is the prefix under which candidate images are stored.
const FolderCandidates = "candidates"

// Allowed candidate image MIME types and extensions.
var (
	AllowedImageTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/jpg":  ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
		"image/gif":  ".gif",
	}
	AllowedImageExtensions = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
		".gif":  "image/gif",
	}
)

// ImageStore persists candidate images and releases them by the reference Save returned.
// Release of a reference the store does not own, or that is already gone, is a no-op.
type ImageStore interface {
	Save(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (string, error)
	Release(ctx context.Context, ref string) error
}

// ValidateImageType returns true if the content type or extension is an allowed image type.
func ValidateImageType(contentType, filename string) bool {
	if contentType != "" {
		ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
		if _, ok := AllowedImageTypes[ct]; ok {
			return true
		}
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext != "" {
		if _, ok := AllowedImageExtensions[ext]; ok {
			return true
		}
	}
	return false
}

// ContentTypeForFilename returns the MIME type for an image filename extension.
func ContentTypeForFilename(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ct, ok := AllowedImageExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// extensionFor picks the stored file extension from the filename, else the content type.
func extensionFor(filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := AllowedImageExtensions[ext]; ok {
		return ext
	}
	if e, ok := AllowedImageTypes[strings.ToLower(contentType)]; ok {
		return e
	}
	return ".img"
}

// CandidateKey returns the object key for a candidate image: candidates/{event_id}/{name}{ext}.
func CandidateKey(eventID, name, ext string) string {
	return path.Join(FolderCandidates, safeSegment(eventID), name+ext)
}

// EventPrefix returns the key prefix that holds every image of one event.
func EventPrefix(eventID string) string {
	return path.Join(FolderCandidates, safeSegment(eventID)) + "/"
}

// safeSegment keeps a caller-supplied id usable as a single path segment. Ids made
// only of [A-Za-z0-9_-] are used as-is; anything else is hex-encoded behind '='.
func safeSegment(s string) string {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			continue
		}
		return "=" + hex.EncodeToString([]byte(s))
	}
	if s == "" {
		return "="
	}
	return s
}
