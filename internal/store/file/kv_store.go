package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/calendash/internal/store"
)

const documentVersion = 1

var _ store.KVStore = (*KVStore)(nil)

// document is the on-disk representation of the store.
type document struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values"`
}

// KVStore persists values as a single JSON document on the local filesystem.
type KVStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// DefaultPath returns the XDG data path used when no explicit path is configured.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "calendash", "session.json")
}

// NewKVStore creates a file backed store at path.
// If path is empty, uses DefaultPath.
func NewKVStore(path string) (*KVStore, error) {
	if path == "" {
		path = DefaultPath()
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	log.Debug().Str("path", path).Msg("file store initialized")

	return &KVStore{path: path}, nil
}

// Path returns the location of the backing file.
func (s *KVStore) Path() string {
	return s.path
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", store.ErrClosed
	}

	doc, err := s.load()
	if err != nil {
		return "", err
	}

	value, ok := doc.Values[key]
	if !ok {
		return "", store.ErrNotFound
	}

	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	doc, err := s.load()
	if err != nil {
		return err
	}

	doc.Values[key] = value

	return s.save(doc)
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	doc, err := s.load()
	if err != nil {
		return err
	}

	changed := false
	for _, key := range keys {
		if _, ok := doc.Values[key]; ok {
			delete(doc.Values, key)
			changed = true
		}
	}

	if !changed {
		return nil
	}

	return s.save(doc)
}

func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// load reads the document. A missing or corrupt file reads as empty.
func (s *KVStore) load() (*document, error) {
	doc := &document{Version: documentVersion, Values: make(map[string]string)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("store file is corrupt, treating as empty")
		return &document{Version: documentVersion, Values: make(map[string]string)}, nil
	}

	// Ensure values map is initialized
	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}

	return doc, nil
}

// save writes the document atomically.
func (s *KVStore) save(doc *document) error {
	doc.Version = documentVersion

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	// Write to temp file first
	tempPath := s.path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to save store: %w", err)
	}

	return nil
}
