package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore persists processed clothing images. Refs returned by Store are
// opaque to callers: the remote backend hands out s3:// URIs, the local one
// relative file paths, and every method accepts either its own refs only.
type BlobStore interface {
	Store(ctx context.Context, img []byte, name, owner string) (string, error)
	Retrieve(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
	List(ctx context.Context, owner string) ([]string, error)
	DownloadURL(ctx context.Context, ref string, expiry time.Duration) (string, error)
	BackendType() string
}

// ProcessedImageKey builds the storage key for a processed image:
// {owner}/processed/{stem}_processed.jpg, or processed/{stem}_processed.jpg
// when per-user isolation is off (empty owner). Output is always JPEG
// regardless of the upload format.
func ProcessedImageKey(normalizedOwner, filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if normalizedOwner == "" {
		return fmt.Sprintf("processed/%s_processed.jpg", stem)
	}
	return fmt.Sprintf("%s/processed/%s_processed.jpg", normalizedOwner, stem)
}

// UniqueFilename prefixes the upload name with a timestamp and a short uuid so
// repeated uploads of same-named files never collide in storage.
func UniqueFilename(normalizedOwner, filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_%s_%s_%s%s",
		time.Now().Format("20060102T150405"),
		normalizedOwner,
		stem,
		uuid.NewString()[:8],
		ext)
}

// NewBlobStore picks the backend for this process: R2 when opted in and the
// bucket answers a HeadBucket probe, otherwise local disk.
func NewBlobStore(ctx context.Context, settings Settings, awsService AWSServiceProvider) BlobStore {
	local := NewLocalBlobStore(settings)
	if !settings.UseR2 {
		return local
	}
	if awsService == nil {
		log.Printf("[blobs] R2 requested but no AWS service configured, using local store")
		return local
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := awsService.ProbeBucket(probeCtx, settings.R2BucketName); err != nil {
		log.Printf("[blobs] R2 probe failed, falling back to local store [bucket=%v]: %v", settings.R2BucketName, err)
		return local
	}
	log.Printf("[blobs] using R2 backend [bucket=%v]", settings.R2BucketName)
	return NewS3BlobStore(awsService, settings.R2BucketName)
}
