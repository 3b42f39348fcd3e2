// Package storage persists tenant-scoped image asset records and
// allocates collision-free storage paths for them.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/vladimirnetworks/webcite/pkg/types"
)

// ErrUniqueViolation reports an insert that collided on (tenant, path).
var ErrUniqueViolation = errors.New("asset path already taken")

// ErrNotFound reports a lookup that matched no asset.
var ErrNotFound = errors.New("asset not found")

// AssetStore persists and retrieves image asset records. InsertAsset
// must return ErrUniqueViolation (possibly wrapped) when the
// (tenant, path) pair already exists, and never partially persist.
type AssetStore interface {
	InsertAsset(ctx context.Context, asset types.ImageAsset) (types.ImageAsset, error)
	GetAsset(ctx context.Context, tenant, path string) (types.ImageAsset, error)
}

// TenantFromHost derives a tenant namespace from an originating host:
// lowercased, with a leading www. stripped.
func TenantFromHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}
