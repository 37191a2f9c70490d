package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalBlobStore writes processed images under a base directory and serves
// them back through the /images static route.
type LocalBlobStore struct {
	baseDir    string
	userScoped bool
}

func NewLocalBlobStore(settings Settings) *LocalBlobStore {
	return &LocalBlobStore{baseDir: settings.ImageDirectory, userScoped: settings.CreateUserSubdirs}
}

func (s *LocalBlobStore) BackendType() string { return "local" }

func (s *LocalBlobStore) Store(ctx context.Context, img []byte, name, owner string) (string, error) {
	normalized, err := NormalizeUserID(owner)
	if err != nil {
		return "", err
	}
	if !s.userScoped {
		normalized = ""
	}
	key := ProcessedImageKey(normalized, name)
	path, err := EnsureWithinBase(s.baseDir, filepath.FromSlash(key))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return "", fmt.Errorf("write image %v: %w", path, err)
	}
	return path, nil
}

func (s *LocalBlobStore) resolve(ref string) (string, error) {
	if strings.HasPrefix(ref, remoteRefScheme) {
		return "", fmt.Errorf("remote ref %q not servable by local store", ref)
	}
	rel, err := filepath.Rel(s.baseDir, ref)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("ref %q outside image directory", ref)
	}
	return ref, nil
}

func (s *LocalBlobStore) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %v: %w", ref, err)
	}
	return data, nil
}

func (s *LocalBlobStore) Delete(ctx context.Context, ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete image %v: %w", ref, err)
	}
	return nil
}

func (s *LocalBlobStore) List(ctx context.Context, owner string) ([]string, error) {
	normalized, err := NormalizeUserID(owner)
	if err != nil {
		return nil, err
	}
	if !s.userScoped {
		normalized = ""
	}
	dir := filepath.Join(s.baseDir, normalized, "processed")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var refs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		refs = append(refs, filepath.Join(dir, entry.Name()))
	}
	return refs, nil
}

// DownloadURL returns the static-route path for the image; expiry is
// meaningless for local files and ignored.
func (s *LocalBlobStore) DownloadURL(ctx context.Context, ref string, expiry time.Duration) (string, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil {
		return "", err
	}
	return "/images/" + filepath.ToSlash(rel), nil
}
