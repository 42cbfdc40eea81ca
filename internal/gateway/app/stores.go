package app

import (
	"fmt"
	"io"
	"log"

	snapcache "github.com/reny1cao/crypto-insights/internal/cache/snapshot"
	"github.com/reny1cao/crypto-insights/internal/gateway/config"
	snaprepo "github.com/reny1cao/crypto-insights/internal/gateway/repository/snapshot"
)

// initSnapshotStore opens the configured backend behind the LRU cache. The
// returned closer is nil when the backend holds no resources.
func initSnapshotStore(cfg *config.Config) (*snapcache.CachedStore, io.Closer, error) {
	var (
		origin snaprepo.Store
		closer io.Closer
	)
	switch cfg.Snapshot.Backend {
	case "memory":
		origin = snaprepo.NewMemoryStore()
		log.Printf("snapshot store: in-memory")
	case "file":
		fs, err := snaprepo.NewFileStore(cfg.Snapshot.Dir)
		if err != nil {
			return nil, nil, err
		}
		origin = fs
		log.Printf("snapshot store: file dir=%s", cfg.Snapshot.Dir)
	case "postgres":
		pg, err := snaprepo.OpenPostgresStore(cfg.Snapshot.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		origin, closer = pg, pg
		log.Printf("snapshot store: postgres")
	case "s3":
		s3Cfg := snaprepo.S3Config{
			Endpoint:  cfg.Snapshot.S3.Endpoint,
			Region:    cfg.Snapshot.S3.Region,
			AccessKey: cfg.Snapshot.S3.AccessKey,
			SecretKey: cfg.Snapshot.S3.SecretKey,
			Bucket:    cfg.Snapshot.S3.Bucket,
			UseSSL:    cfg.Snapshot.S3.UseSSL,
		}
		s3Store, err := snaprepo.NewS3Store(s3Cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize snapshot s3 store: %w", err)
		}
		origin = s3Store
		log.Printf("snapshot store: s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint)
	default:
		return nil, nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
	}
	cached, err := snapcache.NewCachedStore(origin, cfg.Snapshot.CacheEntries)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}
	return cached, closer, nil
}
