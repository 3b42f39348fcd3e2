package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladimirnetworks/webcite/pkg/types"
)

// MemStore is an in-memory AssetStore for tests and dry runs.
type MemStore struct {
	mu     sync.Mutex
	assets map[string]types.ImageAsset
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{assets: make(map[string]types.ImageAsset)}
}

func assetKey(tenant, path string) string {
	return tenant + "\x00" + path
}

// InsertAsset stores the record, failing with ErrUniqueViolation when
// the (tenant, path) pair is already taken.
func (s *MemStore) InsertAsset(ctx context.Context, asset types.ImageAsset) (types.ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return types.ImageAsset{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := assetKey(asset.Tenant, asset.Path)
	if _, exists := s.assets[key]; exists {
		return types.ImageAsset{}, ErrUniqueViolation
	}
	asset.ID = uuid.NewString()
	asset.CreatedAt = time.Now()
	s.assets[key] = asset
	return asset, nil
}

// GetAsset returns the record stored under (tenant, path).
func (s *MemStore) GetAsset(ctx context.Context, tenant, path string) (types.ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return types.ImageAsset{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[assetKey(tenant, path)]
	if !ok {
		return types.ImageAsset{}, ErrNotFound
	}
	return asset, nil
}

// Len reports the number of stored records.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assets)
}
