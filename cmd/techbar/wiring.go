package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"techbar/internal/cache"
	"techbar/internal/config"
	"techbar/internal/database"
	"techbar/internal/metrics"
	"techbar/internal/platform"
	"techbar/internal/service"
	"techbar/internal/storage"
	"techbar/internal/store"
)

// backend holds the connections opened for one command run.
type backend struct {
	platform *platform.Client
	db       *sql.DB
	valkey   *redis.Client
	exporter *storage.Client
}

func (b *backend) Close() {
	if b.valkey != nil {
		b.valkey.Close()
	}
	if b.db != nil {
		b.db.Close()
	}
}

func newPlatformClient(cfg *config.Config) *platform.Client {
	return platform.NewClient(platform.Options{
		BaseURL:  cfg.PlatformURL,
		Username: cfg.PlatformUsername,
		Password: cfg.PlatformPassword,
		Timeout:  cfg.PlatformTimeout,
	})
}

// openBackend connects everything the configured category source needs.
// Valkey and S3 are optional: the service runs without a cache or snapshot
// export when they are unavailable.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{platform: newPlatformClient(cfg)}

	if cfg.CatalogSource == config.SourcePostgres {
		db, err := database.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		b.db = db
		if _, err := database.Migrate(ctx, db); err != nil {
			b.Close()
			return nil, err
		}
		if cfg.IsDev() {
			if err := database.Seed(ctx, db, cfg.KappSlug); err != nil {
				b.Close()
				return nil, err
			}
		}
	}

	valkey, err := cache.ConnectValkey(ctx, cache.ValkeyConfig{
		Host:     cfg.ValkeyHost,
		Port:     cfg.ValkeyPort,
		Password: cfg.ValkeyPassword,
	})
	if err != nil {
		zap.S().Warnw("valkey unavailable, catalog cache disabled", "error", err)
	} else {
		b.valkey = valkey
	}

	exporter, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("initialize s3 storage: %w", err)
	}
	if exporter == nil {
		zap.S().Warnw("s3 storage not configured, snapshot export disabled")
	} else {
		zap.S().Infow("s3 storage configured", "endpoint", cfg.S3Endpoint, "bucket", exporter.Bucket())
		b.exporter = exporter
	}

	return b, nil
}

// source returns the configured category source.
func (b *backend) source() service.Source {
	if b.db != nil {
		return store.NewCatalogStore(b.db)
	}
	return b.platform
}

// catalogService wires the catalog service over the backend.
func (b *backend) catalogService(cfg *config.Config, m *metrics.Metrics) *service.Catalog {
	opts := []service.Option{
		service.WithCategoryOptions(cfg.Catalog),
		service.WithIncludeHidden(cfg.CatalogIncludeHidden),
		service.WithSubmissions(b.platform),
		service.WithMetrics(m),
	}
	if b.valkey != nil {
		opts = append(opts, service.WithCache(cache.NewCatalogCache(b.valkey, cfg.CatalogCacheTTL)))
	}
	if b.exporter != nil {
		opts = append(opts, service.WithExporter(b.exporter))
	}
	return service.New(b.source(), opts...)
}
