// Package repository persists the full user/link snapshot.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/darkodi/link-shortener/internal/model"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// SnapshotRepository loads and saves the whole data set
type SnapshotRepository interface {
	Load(ctx context.Context) (model.Snapshot, error)
	Save(ctx context.Context, snap model.Snapshot) error
	Close() error
}

// Config selects and configures a backend
type Config struct {
	Driver string // "file", "sqlite", "postgres", "redis"
	Path   string // file path for "file", database path for "sqlite"
	DSN    string // connection string for "postgres"

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// Open returns the backend named by cfg.Driver
func Open(ctx context.Context, cfg Config) (SnapshotRepository, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileRepository(cfg.Path), nil
	case "sqlite":
		return NewSQLiteRepository(ctx, cfg.Path)
	case "postgres":
		return NewPostgresRepository(ctx, cfg.DSN)
	case "redis":
		return NewRedisRepository(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// normalize fills the maps a decoded snapshot may be missing
func normalize(snap model.Snapshot) model.Snapshot {
	if snap.Users == nil {
		snap.Users = make(map[string]model.UserRecord)
	}
	for name, u := range snap.Users {
		if u.Links == nil {
			u.Links = make(map[string]model.Link)
			snap.Users[name] = u
		}
	}
	return snap
}
