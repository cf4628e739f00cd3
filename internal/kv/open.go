package kv

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/debemdeboas/postdesk/internal/config"
	"github.com/debemdeboas/postdesk/internal/db"
	"github.com/debemdeboas/postdesk/internal/util/compression"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// sqlitePath treats a path without an extension as a data directory.
func sqlitePath(path string) (string, error) {
	if path == db.MemoryPath || filepath.Ext(path) != "" {
		return path, nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(path, "postdesk.db"), nil
}

// Open builds the configured backend. The closer releases its connections.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, io.Closer, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nopCloser, nil

	case "fs":
		store, err := NewFSStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser, nil

	case "sqlite":
		path, err := sqlitePath(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("preparing sqlite path: %w", err)
		}
		comp, err := compression.ByName(cfg.Compression)
		if err != nil {
			return nil, nil, err
		}
		database := db.NewSQLite(path)
		if err := database.InitDB(); err != nil {
			return nil, nil, err
		}
		return NewSQLiteStore(database, comp), closerFunc(func() error {
			if z, ok := comp.(*compression.ZstdCompressor); ok {
				z.Close()
			}
			return database.Close()
		}), nil

	case "redis":
		client, err := ConnectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client, "", config.Seconds(cfg.Redis.TimeoutSeconds)), client, nil

	case "s3":
		store, err := NewS3Store(ctx, S3Options{
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Timeout:         config.Seconds(cfg.S3.TimeoutSeconds),
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
