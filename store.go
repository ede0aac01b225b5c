package main

import (
	"context"
	"fmt"
)

// Store defines the persistence interface for namespaced preferences.
type Store interface {
	GetAll(ctx context.Context, namespace string) (map[string]string, error)
	Get(ctx context.Context, namespace string, key string) (value string, found bool, err error)
	Put(ctx context.Context, namespace string, key string, value string) error
	Delete(ctx context.Context, namespace string, key string) error
	Close() error
}

// NewStore opens the backend selected by cfg.StoreBackend.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.StoreBackend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendSQLite:
		s, err := OpenSQLiteStore(cfg.SQLiteDataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		s, err := NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendDynamoDB:
		s, err := NewDynamoStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
