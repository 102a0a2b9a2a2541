// Package documents attaches files (plans, photos, PDFs) to chantiers.
// Binary payloads go straight to object storage through presigned URLs; only
// metadata crosses the API.
package documents

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"chantier_portal_backend/platform/apperr"
	"chantier_portal_backend/platform/config"
)

// presignedURLTTL bounds how long an upload or download link stays valid.
const presignedURLTTL = 15 * time.Minute

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
}

// PresignedURL is a time-limited link into object storage.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Storage wraps the MinIO client for chantier documents.
type Storage struct {
	client      *minio.Client
	bucket      string
	maxFileSize int64
}

// NewStorage creates the storage adapter and its client.
func NewStorage(cfg config.MinIOConfig) (*Storage, error) {
	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:      client,
		bucket:      cfg.GetMinioBucketChantierDocuments(),
		maxFileSize: cfg.GetMinIOMaxFileSize(),
	}, nil
}

// EnsureBucket creates the documents bucket if it does not exist. Called once
// at startup.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// UploadURL creates a presigned PUT URL under the chantier's folder. The file
// key carries a random suffix so re-uploads of the same name never collide.
func (s *Storage) UploadURL(ctx context.Context, chantierID uuid.UUID, fileName, contentType string, sizeBytes int64) (*PresignedURL, error) {
	if !allowedContentTypes[contentType] {
		return nil, apperr.Validation("unsupported file type")
	}
	if s.maxFileSize > 0 && sizeBytes > s.maxFileSize {
		return nil, apperr.Validation("file exceeds the maximum allowed size")
	}

	ext := path.Ext(fileName)
	base := strings.TrimSuffix(path.Base(fileName), ext)
	fileKey := fmt.Sprintf("%s/%s_%s%s", chantierID, base, uuid.New().String()[:8], ext)

	expiresAt := time.Now().Add(presignedURLTTL)
	presigned, err := s.client.PresignedPutObject(ctx, s.bucket, fileKey, presignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &PresignedURL{URL: presigned.String(), FileKey: fileKey, ExpiresAt: expiresAt}, nil
}

// DownloadURL creates a presigned GET URL for a stored document.
func (s *Storage) DownloadURL(ctx context.Context, fileKey, fileName string) (*PresignedURL, error) {
	params := make(url.Values)
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	expiresAt := time.Now().Add(presignedURLTTL)
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, fileKey, presignedURLTTL, params)
	if err != nil {
		return nil, fmt.Errorf("presign download: %w", err)
	}

	return &PresignedURL{URL: presigned.String(), FileKey: fileKey, ExpiresAt: expiresAt}, nil
}

// Delete removes the object backing a document.
func (s *Storage) Delete(ctx context.Context, fileKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, fileKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object %s: %w", fileKey, err)
	}
	return nil
}
