package services

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const remoteRefScheme = "s3://"

// S3BlobStore keeps processed images in an R2 bucket and refers to them with
// s3://{bucket}/{key} URIs.
type S3BlobStore struct {
	aws        AWSServiceProvider
	bucketName string
}

func NewS3BlobStore(aws AWSServiceProvider, bucketName string) *S3BlobStore {
	return &S3BlobStore{aws: aws, bucketName: bucketName}
}

func (s *S3BlobStore) BackendType() string { return "r2" }

func (s *S3BlobStore) ref(key string) string {
	return remoteRefScheme + s.bucketName + "/" + key
}

func (s *S3BlobStore) keyFromRef(ref string) (string, error) {
	if !strings.HasPrefix(ref, remoteRefScheme) {
		return "", fmt.Errorf("ref %q is not an object-store ref", ref)
	}
	rest := strings.TrimPrefix(ref, remoteRefScheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket != s.bucketName || key == "" {
		return "", fmt.Errorf("ref %q does not belong to bucket %v", ref, s.bucketName)
	}
	return key, nil
}

func (s *S3BlobStore) Store(ctx context.Context, img []byte, name, owner string) (string, error) {
	normalized, err := NormalizeUserID(owner)
	if err != nil {
		return "", err
	}
	key := ProcessedImageKey(normalized, name)
	if err := s.aws.PutObject(ctx, s.bucketName, key, img, "image/jpeg"); err != nil {
		return "", fmt.Errorf("upload image %v: %w", key, err)
	}
	return s.ref(key), nil
}

func (s *S3BlobStore) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	key, err := s.keyFromRef(ref)
	if err != nil {
		return nil, err
	}
	return s.aws.GetObject(ctx, s.bucketName, key)
}

func (s *S3BlobStore) Delete(ctx context.Context, ref string) error {
	key, err := s.keyFromRef(ref)
	if err != nil {
		return err
	}
	return s.aws.DeleteObject(ctx, s.bucketName, key)
}

func (s *S3BlobStore) List(ctx context.Context, owner string) ([]string, error) {
	normalized, err := NormalizeUserID(owner)
	if err != nil {
		return nil, err
	}
	keys, err := s.aws.ListObjects(ctx, s.bucketName, normalized+"/processed/")
	if err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(keys))
	for _, key := range keys {
		refs = append(refs, s.ref(key))
	}
	return refs, nil
}

func (s *S3BlobStore) DownloadURL(ctx context.Context, ref string, expiry time.Duration) (string, error) {
	key, err := s.keyFromRef(ref)
	if err != nil {
		return "", err
	}
	return s.aws.GetPresignedR2FileReadURL(ctx, s.bucketName, key, expiry)
}
