package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
)

type URLCacheServiceProvider interface {
	GetReadURL(ctx context.Context, ref string) (string, error)
}

// URLCacheService memoizes BlobStore.DownloadURL results so repeated styling
// and duplicate responses do not re-presign the same object. Entries expire
// slightly before the presigned URL itself does.
type URLCacheService struct {
	cache  *cache.LoadableCache[string]
	expiry time.Duration
}

func NewURLCacheService(blobs BlobStore, urlExpiry time.Duration) (*URLCacheService, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e7,     // 10M
		MaxCost:     1 << 27, // 128MB
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)

	cacheTTL := urlExpiry * 4 / 5

	loadFunction := func(ctx context.Context, key any) (string, []store.Option, error) {
		ref, ok := key.(string)
		if !ok {
			return "", nil, fmt.Errorf("invalid key type provided to URL cache: expected string, got %T", key)
		}
		log.Printf("CACHE MISS for ref: %s. Generating new download URL.", ref)
		url, err := blobs.DownloadURL(ctx, ref, urlExpiry)
		return url, []store.Option{store.WithExpiration(cacheTTL)}, err
	}

	loadableCache := cache.NewLoadable[string](
		loadFunction,
		cache.New[string](ristrettoStore),
	)
	return &URLCacheService{cache: loadableCache, expiry: urlExpiry}, nil
}

func (s *URLCacheService) GetReadURL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	return s.cache.Get(ctx, ref)
}
