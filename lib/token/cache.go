// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/pim/lib/codec"
	"github.com/bureau-foundation/pim/lib/sealed"
	"github.com/bureau-foundation/pim/lib/secret"
)

// Record is one cached token.
type Record struct {
	Audience     Audience  `cbor:"audience"`
	AccessToken  string    `cbor:"access_token"`
	RefreshToken string    `cbor:"refresh_token,omitempty"`
	ExpiresAt    time.Time `cbor:"expires_at"`
}

// Store persists token records between runs.
type Store interface {
	// Load returns every stored record. Any error means the stored
	// state is unusable and the caller starts empty.
	Load() (map[Audience]Record, error)

	// Save replaces the stored records.
	Save(records map[Audience]Record) error

	// Clear removes the stored records.
	Clear() error
}

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Audience]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[Audience]Record{}}
}

// Load returns a copy of the stored records.
func (store *MemoryStore) Load() (map[Audience]Record, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return copyRecords(store.records), nil
}

// Save replaces the stored records with a copy of records.
func (store *MemoryStore) Save(records map[Audience]Record) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.records = copyRecords(records)
	return nil
}

// Clear empties the store.
func (store *MemoryStore) Clear() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.records = map[Audience]Record{}
	return nil
}

func copyRecords(records map[Audience]Record) map[Audience]Record {
	copied := make(map[Audience]Record, len(records))
	for audience, record := range records {
		copied[audience] = record
	}
	return copied
}

// cacheFormatVersion is bumped whenever the envelope changes shape.
const cacheFormatVersion = 1

// cacheEnvelope is the on-disk CBOR document.
type cacheEnvelope struct {
	Version     int      `cbor:"version"`
	Fingerprint []byte   `cbor:"fingerprint"`
	Records     []Record `cbor:"records"`
}

// ErrCacheMismatch reports a cache file written for a different
// identity (tenant, client, or provider) or by a different format
// version.
var ErrCacheMismatch = errors.New("token: cache belongs to a different identity or format")

// FileStoreConfig configures a FileStore.
type FileStoreConfig struct {
	// Path of the cache file. Its directory is created with mode 0700.
	Path string

	// Partition names the identity the cache belongs to, for example
	// "tenant|client|provider". A file written under another partition
	// loads as a mismatch.
	Partition string

	// Identity, if set, seals the file with age to this identity's
	// recipient. Borrowed, not closed by the store.
	Identity *secret.Buffer
}

// FileStore keeps records in a single private file, written atomically
// with mode 0600.
type FileStore struct {
	path        string
	fingerprint []byte
	identity    *secret.Buffer
	recipient   string
}

// NewFileStore creates a FileStore. Nothing is read or written until
// Load or Save.
func NewFileStore(config FileStoreConfig) (*FileStore, error) {
	if config.Path == "" {
		return nil, errors.New("token: cache path is required")
	}
	sum := blake3.Sum256([]byte(config.Partition))
	store := &FileStore{
		path:        config.Path,
		fingerprint: sum[:],
		identity:    config.Identity,
	}
	if config.Identity != nil {
		recipient, err := sealed.Recipient(config.Identity)
		if err != nil {
			return nil, fmt.Errorf("token: cache identity: %w", err)
		}
		store.recipient = recipient
	}
	return store, nil
}

// Path returns the cache file path.
func (store *FileStore) Path() string { return store.path }

// Load reads the cache file. A missing file is an empty cache, not an
// error.
func (store *FileStore) Load() (map[Audience]Record, error) {
	data, err := os.ReadFile(store.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[Audience]Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("token: reading cache: %w", err)
	}

	plaintext := data
	if store.identity != nil {
		opened, err := sealed.Open(data, store.identity)
		if err != nil {
			return nil, fmt.Errorf("token: opening sealed cache: %w", err)
		}
		defer opened.Close()
		plaintext = opened.Bytes()
	}

	var envelope cacheEnvelope
	if err := codec.Unmarshal(plaintext, &envelope); err != nil {
		return nil, fmt.Errorf("token: decoding cache: %w", err)
	}
	if envelope.Version != cacheFormatVersion || !bytes.Equal(envelope.Fingerprint, store.fingerprint) {
		return nil, ErrCacheMismatch
	}

	records := make(map[Audience]Record, len(envelope.Records))
	for _, record := range envelope.Records {
		if record.Audience == "" || record.AccessToken == "" {
			continue
		}
		records[record.Audience] = record
	}
	return records, nil
}

// Save writes records to a temporary file beside the cache and renames
// it into place.
func (store *FileStore) Save(records map[Audience]Record) error {
	envelope := cacheEnvelope{
		Version:     cacheFormatVersion,
		Fingerprint: store.fingerprint,
		Records:     make([]Record, 0, len(records)),
	}
	for _, audience := range slices.Sorted(maps.Keys(records)) {
		envelope.Records = append(envelope.Records, records[audience])
	}

	data, err := codec.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("token: encoding cache: %w", err)
	}
	if store.identity != nil {
		sealedData, err := sealed.Seal(data, store.recipient)
		secret.Zero(data)
		if err != nil {
			return fmt.Errorf("token: sealing cache: %w", err)
		}
		data = sealedData
	}
	defer secret.Zero(data)

	directory := filepath.Dir(store.path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("token: creating cache directory: %w", err)
	}
	temporary, err := os.CreateTemp(directory, ".token-cache-*")
	if err != nil {
		return fmt.Errorf("token: creating cache file: %w", err)
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if err := temporary.Chmod(0o600); err != nil {
		temporary.Close()
		return fmt.Errorf("token: restricting cache file: %w", err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("token: writing cache file: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("token: writing cache file: %w", err)
	}
	if err := os.Rename(temporaryPath, store.path); err != nil {
		return fmt.Errorf("token: replacing cache file: %w", err)
	}
	return nil
}

// Clear deletes the cache file.
func (store *FileStore) Clear() error {
	if err := os.Remove(store.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("token: removing cache: %w", err)
	}
	return nil
}
