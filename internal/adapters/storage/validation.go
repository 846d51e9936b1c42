package storage

import (
	"fmt"
	"mime"
	"strings"

	"agency_os_backend/platform/apperr"
)

var allowedContentTypes = map[Purpose]map[string]bool{
	PurposeKeywordUpload: {
		"text/csv":                 true,
		"text/plain":               true,
		"application/csv":          true,
		"application/vnd.ms-excel": true,
	},
	PurposeBrandLogo: {
		"image/jpeg":    true,
		"image/png":     true,
		"image/webp":    true,
		"image/svg+xml": true,
	},
}

// maxLogoSize caps logos independently of the global upload limit.
const maxLogoSize = 2 << 20

// ValidateContentType checks contentType against the rules for purpose.
func ValidateContentType(purpose Purpose, contentType string) error {
	normalized, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		normalized = strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	}

	allowed, ok := allowedContentTypes[purpose]
	if !ok {
		return apperr.BadRequest(fmt.Sprintf("unknown upload purpose %q", purpose))
	}
	if !allowed[normalized] {
		return apperr.Validation(fmt.Sprintf("content type %q is not allowed", contentType))
	}
	return nil
}

// ValidateFileSize checks sizeBytes against the configured and per-purpose limits.
func ValidateFileSize(purpose Purpose, sizeBytes, maxFileSize int64) error {
	if sizeBytes <= 0 {
		return apperr.Validation("file size must be greater than 0")
	}
	limit := maxFileSize
	if purpose == PurposeBrandLogo && (limit <= 0 || limit > maxLogoSize) {
		limit = maxLogoSize
	}
	if limit > 0 && sizeBytes > limit {
		return apperr.Validation(fmt.Sprintf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, limit))
	}
	return nil
}

// AllowedContentTypes lists the accepted types for purpose, for client hints.
func AllowedContentTypes(purpose Purpose) []string {
	types := make([]string, 0, len(allowedContentTypes[purpose]))
	for ct := range allowedContentTypes[purpose] {
		types = append(types, ct)
	}
	return types
}
