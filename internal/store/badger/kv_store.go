package badger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/calendash/internal/store"
)

var _ store.KVStore = (*KVStore)(nil)

// KVStore implements store.KVStore on top of a BadgerDB directory.
type KVStore struct {
	db *badgerdb.DB
}

// DefaultDir returns the XDG data directory used when no explicit directory is configured.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, "calendash", "badger")
}

// NewKVStore opens (or creates) a badger database in dir.
// If dir is empty, uses DefaultDir.
func NewKVStore(dir string) (*KVStore, error) {
	if dir == "" {
		dir = DefaultDir()
	}

	opts := badgerdb.DefaultOptions(dir).
		WithLogger(nil) // badger logs to stderr by default

	return open(opts)
}

// NewInMemoryKVStore opens a badger database that never touches disk.
func NewInMemoryKVStore() (*KVStore, error) {
	opts := badgerdb.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)

	return open(opts)
}

func open(opts badgerdb.Options) (*KVStore, error) {
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	log.Debug().Str("dir", opts.Dir).Bool("in_memory", opts.InMemory).Msg("badger store initialized")

	return &KVStore{db: db}, nil
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value []byte

	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return "", mapError(err)
	}

	return string(value), nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, mapError(err))
	}

	return nil
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete keys: %w", mapError(err))
	}

	return nil
}

func (s *KVStore) Close() error {
	return s.db.Close()
}

func mapError(err error) error {
	switch {
	case errors.Is(err, badgerdb.ErrKeyNotFound):
		return store.ErrNotFound
	case errors.Is(err, badgerdb.ErrDBClosed):
		return store.ErrClosed
	default:
		return err
	}
}
