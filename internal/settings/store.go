// Package settings persists user settings such as service keys. Every
// backend satisfies Store; an unset name reads as the empty string.
package settings

import (
	"context"
	"fmt"
)

// Well-known setting names.
const (
	TrainingKey   = "TrainingKey"
	PredictionKey = "PredictionKey"
)

// Store is the getSetting/setSetting contract.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend   string // file, sqlite or redis
	Path      string
	RedisAddr string
}

// Open creates the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		store Store
		err   error
	)
	switch opts.Backend {
	case "", "file":
		store, err = OpenFile(opts.Path)
	case "sqlite":
		store, err = OpenSQLite(opts.Path)
	case "redis":
		store, err = OpenRedis(ctx, opts.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown settings backend: %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Seed writes each non-empty value whose setting is currently unset.
func Seed(ctx context.Context, store Store, values map[string]string) error {
	for name, value := range values {
		if value == "" {
			continue
		}
		current, err := store.Get(ctx, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if current != "" {
			continue
		}
		if err := store.Set(ctx, name, value); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
	}
	return nil
}
