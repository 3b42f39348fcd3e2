package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	pq "github.com/lib/pq"

	"github.com/vladimirnetworks/webcite/internal/config"
	"github.com/vladimirnetworks/webcite/pkg/types"
)

// SQLStore is an AssetStore backed by database/sql.
type SQLStore struct {
	db          *sql.DB
	autoMigrate bool
}

// NewSQLStore initialises a SQLStore from configuration.
func NewSQLStore(cfg config.SQLConfig) (*SQLStore, error) {
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, errors.New("sql config missing driver or dsn")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if cfg.CreateIfMissing && shouldAttemptCreateDatabase(cfg.Driver, err) {
			_ = db.Close()
			if err := createDatabase(ctx, cfg); err != nil {
				return nil, err
			}
			db, err = sql.Open(cfg.Driver, cfg.DSN)
			if err != nil {
				return nil, fmt.Errorf("open sql connection: %w", err)
			}
			if err := db.PingContext(ctx); err != nil {
				return nil, fmt.Errorf("ping sql connection: %w", err)
			}
		} else {
			return nil, fmt.Errorf("ping sql connection: %w", err)
		}
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	}
	store := &SQLStore{
		db:          db,
		autoMigrate: cfg.AutoMigrate,
	}
	if cfg.AutoMigrate {
		if err := store.ensureSchema(context.Background()); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// InsertAsset persists a new record, translating a (tenant, path)
// uniqueness conflict into ErrUniqueViolation for the allocator.
func (s *SQLStore) InsertAsset(ctx context.Context, asset types.ImageAsset) (types.ImageAsset, error) {
	if s == nil || s.db == nil {
		return types.ImageAsset{}, errors.New("sql store not initialised")
	}
	asset.ID = uuid.NewString()
	asset.CreatedAt = time.Now()

	if err := s.insertRow(ctx, asset); err != nil {
		if isUniqueViolation(err) {
			return types.ImageAsset{}, fmt.Errorf("insert asset %s/%s: %w", asset.Tenant, asset.Path, ErrUniqueViolation)
		}
		if s.autoMigrate && isUndefinedTableErr(err) {
			if schemaErr := s.ensureSchema(ctx); schemaErr != nil {
				return types.ImageAsset{}, fmt.Errorf("ensure schema: %w", schemaErr)
			}
			if retryErr := s.insertRow(ctx, asset); retryErr != nil {
				if isUniqueViolation(retryErr) {
					return types.ImageAsset{}, fmt.Errorf("insert asset %s/%s: %w", asset.Tenant, asset.Path, ErrUniqueViolation)
				}
				return types.ImageAsset{}, fmt.Errorf("insert asset: %w", retryErr)
			}
			return asset, nil
		}
		return types.ImageAsset{}, fmt.Errorf("insert asset: %w", err)
	}
	return asset, nil
}

func (s *SQLStore) insertRow(ctx context.Context, asset types.ImageAsset) error {
	query := `
        INSERT INTO assets (id, tenant, path, origin_url, origin_type, origin_size, width, height, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `
	size := sql.NullInt64{Int64: asset.OriginSize, Valid: asset.OriginSize >= 0}
	_, err := s.db.ExecContext(ctx, query,
		asset.ID,
		asset.Tenant,
		asset.Path,
		asset.OriginURL,
		asset.OriginType,
		size,
		asset.Width,
		asset.Height,
		asset.CreatedAt,
	)
	return err
}

// GetAsset looks up one record by (tenant, path) for the serving layer.
func (s *SQLStore) GetAsset(ctx context.Context, tenant, path string) (types.ImageAsset, error) {
	if s == nil || s.db == nil {
		return types.ImageAsset{}, errors.New("sql store not initialised")
	}
	query := `
        SELECT id, tenant, path, origin_url, origin_type, origin_size, width, height, created_at
        FROM assets WHERE tenant = $1 AND path = $2
    `
	var asset types.ImageAsset
	var size sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, tenant, path).Scan(
		&asset.ID,
		&asset.Tenant,
		&asset.Path,
		&asset.OriginURL,
		&asset.OriginType,
		&size,
		&asset.Width,
		&asset.Height,
		&asset.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ImageAsset{}, ErrNotFound
	}
	if err != nil {
		return types.ImageAsset{}, fmt.Errorf("get asset: %w", err)
	}
	asset.OriginSize = -1
	if size.Valid {
		asset.OriginSize = size.Int64
	}
	return asset, nil
}

// Close closes the underlying DB connection.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil || !s.autoMigrate {
		return nil
	}
	schemaCtx := ctx
	if schemaCtx == nil || schemaCtx.Err() != nil {
		schemaCtx = context.Background()
	}
	schemaCtx, cancel := context.WithTimeout(schemaCtx, 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS assets (
		    id UUID PRIMARY KEY,
		    tenant TEXT NOT NULL,
		    path TEXT NOT NULL,
		    origin_url TEXT NOT NULL,
		    origin_type TEXT NOT NULL,
		    origin_size BIGINT,
		    width INT NOT NULL,
		    height INT NOT NULL,
		    created_at TIMESTAMPTZ NOT NULL,
		    UNIQUE (tenant, path)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assets_created_at ON assets (created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}

func shouldAttemptCreateDatabase(driver string, err error) bool {
	if !strings.EqualFold(driver, "postgres") {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "3D000"
	}
	return strings.Contains(strings.ToLower(err.Error()), "does not exist")
}

func createDatabase(ctx context.Context, cfg config.SQLConfig) error {
	parsed, err := url.Parse(cfg.DSN)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return errors.New("dsn missing database name")
	}
	if strings.EqualFold(dbName, "postgres") {
		return fmt.Errorf("target database %q cannot be auto-created", dbName)
	}
	parsed.Path = "/postgres"
	adminDSN := parsed.String()
	adminDB, err := sql.Open(cfg.Driver, adminDSN)
	if err != nil {
		return fmt.Errorf("connect admin database: %w", err)
	}
	defer adminDB.Close()
	if err := adminDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping admin database: %w", err)
	}
	stmt := fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))
	if _, err := adminDB.ExecContext(ctx, stmt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P04" {
			return nil
		}
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	return nil
}
