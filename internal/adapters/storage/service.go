// Package storage wraps S3-compatible object storage for keyword uploads and
// brand logos.
package storage

import (
	"context"
	"io"
	"time"
)

// Purpose selects the content rules that apply to an object.
type Purpose string

const (
	PurposeKeywordUpload Purpose = "keyword_upload"
	PurposeBrandLogo     Purpose = "brand_logo"
)

// PresignedURL contains the URL and metadata for a presigned upload/download operation.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UploadRequest describes a file the browser is about to PUT.
type UploadRequest struct {
	Bucket      string
	Folder      string
	FileName    string
	ContentType string
	SizeBytes   int64
	Purpose     Purpose
}

// StorageService defines the object storage operations the modules use.
type StorageService interface {
	// GenerateUploadURL validates the request and returns a presigned PUT URL
	// under a unique key inside Folder.
	GenerateUploadURL(ctx context.Context, req UploadRequest) (*PresignedURL, error)

	// GenerateDownloadURL creates a presigned URL for downloading a file.
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)

	// DownloadFile streams an object. The caller closes the reader.
	DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error)

	// DeleteObject removes an object from storage.
	DeleteObject(ctx context.Context, bucket, fileKey string) error

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}
