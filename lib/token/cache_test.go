// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/pim/lib/sealed"
)

func sampleRecords() map[Audience]Record {
	return map[Audience]Record{
		AudienceGraph: {
			Audience:     AudienceGraph,
			AccessToken:  "graph-token",
			RefreshToken: "refresh-token",
			ExpiresAt:    epoch.Add(time.Hour),
		},
		AudienceResourceManager: {
			Audience:    AudienceResourceManager,
			AccessToken: "arm-token",
			ExpiresAt:   epoch.Add(30 * time.Minute),
		},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	directory := filepath.Join(t.TempDir(), "pim")
	path := filepath.Join(directory, "tokens.cbor")
	store, err := NewFileStore(FileStoreConfig{Path: path, Partition: "tenant-1|client-1|interactive"})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	empty, err := store.Load()
	if err != nil || len(empty) != 0 {
		t.Fatalf("Load of a missing file = %v, %v; want empty", empty, err)
	}

	if err := store.Save(sampleRecords()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("cache mode = %o, want 600", mode)
	}
	directoryInfo, err := os.Stat(directory)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := directoryInfo.Mode().Perm(); mode != 0o700 {
		t.Errorf("cache directory mode = %o, want 700", mode)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for audience, want := range sampleRecords() {
		got, ok := loaded[audience]
		if !ok {
			t.Fatalf("record for %s missing", audience)
		}
		if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.ExpiresAt.Equal(want.ExpiresAt) {
			t.Errorf("record %s = %+v, want %+v", audience, got, want)
		}
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("cache file still present after Clear: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestFileStorePartitionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.cbor")
	writer, err := NewFileStore(FileStoreConfig{Path: path, Partition: "tenant-1|client-1|interactive"})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := writer.Save(sampleRecords()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reader, err := NewFileStore(FileStoreConfig{Path: path, Partition: "tenant-2|client-1|interactive"})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := reader.Load(); !errors.Is(err, ErrCacheMismatch) {
		t.Errorf("Load under another partition = %v, want ErrCacheMismatch", err)
	}
}

func TestFileStoreSealed(t *testing.T) {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	path := filepath.Join(t.TempDir(), "tokens.age")
	store, err := NewFileStore(FileStoreConfig{Path: path, Partition: "p", Identity: keypair.PrivateKey})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Save(sampleRecords()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if bytes.Contains(raw, []byte("graph-token")) {
		t.Error("sealed cache contains a plaintext token")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded[AudienceGraph].AccessToken != "graph-token" {
		t.Errorf("sealed round trip lost the graph token: %+v", loaded)
	}

	plain, err := NewFileStore(FileStoreConfig{Path: path, Partition: "p"})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := plain.Load(); err == nil {
		t.Error("unsealed store decoded a sealed cache")
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	if _, err := NewFileStore(FileStoreConfig{}); err == nil {
		t.Fatal("NewFileStore without a path should fail")
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	store := NewMemoryStore()
	records := sampleRecords()
	if err := store.Save(records); err != nil {
		t.Fatalf("Save: %v", err)
	}
	delete(records, AudienceGraph)

	loaded, _ := store.Load()
	if len(loaded) != 2 {
		t.Errorf("store holds %d records, want 2", len(loaded))
	}
}
