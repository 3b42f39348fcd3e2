package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vladimirnetworks/webcite/internal/slug"
	"github.com/vladimirnetworks/webcite/pkg/types"
)

// DefaultMaxPathAttempts bounds collision retries per insert.
const DefaultMaxPathAttempts = 10000

// Allocator drives the candidate → attempt → persisted/retry loop for
// storage paths. Inserts are serialized per tenant so that two images
// carrying the same title receive deterministically increasing suffixes
// instead of racing; the store's uniqueness constraint stays as the
// safety net, not the coordination mechanism.
type Allocator struct {
	store       AssetStore
	maxAttempts int
	logger      *slog.Logger

	mu      sync.Mutex
	tenants map[string]*sync.Mutex
}

// NewAllocator constructs an allocator over the given store.
func NewAllocator(store AssetStore, maxAttempts int, logger *slog.Logger) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPathAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{
		store:       store,
		maxAttempts: maxAttempts,
		logger:      logger,
		tenants:     make(map[string]*sync.Mutex),
	}
}

// Insert persists the record under asset.Path, rewriting the path with
// the collision suffix grammar until the store accepts it or the
// attempt bound runs out.
func (a *Allocator) Insert(ctx context.Context, asset types.ImageAsset) (types.ImageAsset, error) {
	lock := a.tenantLock(asset.Tenant)
	lock.Lock()
	defer lock.Unlock()

	candidate := asset.Path
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		asset.Path = candidate
		persisted, err := a.store.InsertAsset(ctx, asset)
		if err == nil {
			return persisted, nil
		}
		if !errors.Is(err, ErrUniqueViolation) {
			return types.ImageAsset{}, err
		}
		next := slug.NextCandidate(candidate)
		a.logger.Debug("path collision",
			"tenant", asset.Tenant, "path", candidate, "next", next)
		candidate = next
	}
	return types.ImageAsset{}, fmt.Errorf("tenant %s path %s: %w", asset.Tenant, asset.Path, types.ErrPathExhausted)
}

func (a *Allocator) tenantLock(tenant string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.tenants[tenant]
	if !ok {
		lock = &sync.Mutex{}
		a.tenants[tenant] = lock
	}
	return lock
}
