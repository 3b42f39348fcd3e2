package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/vladimirnetworks/webcite/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAllocatorInsert(t *testing.T) {
	store := NewMemStore()
	alloc := NewAllocator(store, 0, testLogger())

	asset, err := alloc.Insert(context.Background(), types.ImageAsset{
		Tenant:     "x.com",
		Path:       "benz.jpg",
		OriginURL:  "https://cdn.example.com/a.jpg",
		OriginType: "image/jpeg",
		OriginSize: 2048,
		Width:      800,
		Height:     400,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset.Path != "benz.jpg" {
		t.Fatalf("path = %q, want benz.jpg", asset.Path)
	}
	if asset.ID == "" || asset.CreatedAt.IsZero() {
		t.Fatal("expected id and created_at to be assigned")
	}
}

func TestAllocatorResolvesCollisions(t *testing.T) {
	store := NewMemStore()
	alloc := NewAllocator(store, 0, testLogger())
	ctx := context.Background()

	record := types.ImageAsset{
		Tenant: "x.com", Path: "benz.jpg",
		OriginURL: "https://a", OriginType: "image/jpeg",
		OriginSize: -1, Width: 10, Height: 10,
	}

	first, err := alloc.Insert(ctx, record)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second, err := alloc.Insert(ctx, record)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	third, err := alloc.Insert(ctx, record)
	if err != nil {
		t.Fatalf("third insert: %v", err)
	}

	if first.Path != "benz.jpg" || second.Path != "benz-2.jpg" || third.Path != "benz-3.jpg" {
		t.Fatalf("paths = %q, %q, %q; want benz.jpg, benz-2.jpg, benz-3.jpg",
			first.Path, second.Path, third.Path)
	}
}

func TestAllocatorSeparateTenants(t *testing.T) {
	store := NewMemStore()
	alloc := NewAllocator(store, 0, testLogger())
	ctx := context.Background()

	a, err := alloc.Insert(ctx, types.ImageAsset{Tenant: "a.com", Path: "benz.jpg", Width: 1, Height: 1})
	if err != nil {
		t.Fatalf("insert a.com: %v", err)
	}
	b, err := alloc.Insert(ctx, types.ImageAsset{Tenant: "b.com", Path: "benz.jpg", Width: 1, Height: 1})
	if err != nil {
		t.Fatalf("insert b.com: %v", err)
	}
	if a.Path != "benz.jpg" || b.Path != "benz.jpg" {
		t.Fatalf("paths = %q, %q; tenants must not collide", a.Path, b.Path)
	}
}

type alwaysCollidingStore struct{}

func (alwaysCollidingStore) InsertAsset(ctx context.Context, asset types.ImageAsset) (types.ImageAsset, error) {
	return types.ImageAsset{}, ErrUniqueViolation
}

func (alwaysCollidingStore) GetAsset(ctx context.Context, tenant, path string) (types.ImageAsset, error) {
	return types.ImageAsset{}, ErrNotFound
}

func TestAllocatorExhaustsAttempts(t *testing.T) {
	alloc := NewAllocator(alwaysCollidingStore{}, 3, testLogger())
	_, err := alloc.Insert(context.Background(), types.ImageAsset{Tenant: "x.com", Path: "benz.jpg"})
	if !errors.Is(err, types.ErrPathExhausted) {
		t.Fatalf("error = %v, want ErrPathExhausted", err)
	}
}

type brokenStore struct{}

func (brokenStore) InsertAsset(ctx context.Context, asset types.ImageAsset) (types.ImageAsset, error) {
	return types.ImageAsset{}, errors.New("connection lost")
}

func (brokenStore) GetAsset(ctx context.Context, tenant, path string) (types.ImageAsset, error) {
	return types.ImageAsset{}, ErrNotFound
}

func TestAllocatorPropagatesStoreErrors(t *testing.T) {
	alloc := NewAllocator(brokenStore{}, 0, testLogger())
	_, err := alloc.Insert(context.Background(), types.ImageAsset{Tenant: "x.com", Path: "benz.jpg"})
	if err == nil || errors.Is(err, types.ErrPathExhausted) {
		t.Fatalf("error = %v, want store error passed through", err)
	}
}

func TestMemStoreLookup(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	inserted, err := store.InsertAsset(ctx, types.ImageAsset{Tenant: "x.com", Path: "a.png", Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetAsset(ctx, "x.com", "a.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != inserted.ID {
		t.Fatalf("id = %q, want %q", got.ID, inserted.ID)
	}

	if _, err := store.GetAsset(ctx, "x.com", "missing.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetAsset(ctx, "y.com", "a.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for other tenant", err)
	}
}

func TestTenantFromHost(t *testing.T) {
	cases := []struct{ in, want string }{
		{"WWW.Example.COM", "example.com"},
		{"example.com", "example.com"},
		{"www.sub.example.com", "sub.example.com"},
		{" www.x.com ", "x.com"},
	}
	for _, tc := range cases {
		if got := TenantFromHost(tc.in); got != tc.want {
			t.Fatalf("TenantFromHost(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
