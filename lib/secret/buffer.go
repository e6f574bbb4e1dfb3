// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"crypto/subtle"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer is a fixed-size region of protected memory. A Buffer must not
// be copied after creation.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// New allocates a zero-filled protected buffer of size bytes.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock failed: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP) failed: %w", err)
	}
	return &Buffer{data: data}, nil
}

// NewFromBytes copies source into a protected buffer and zeroes source.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("secret: cannot create buffer from empty source")
	}
	buffer, err := New(len(source))
	if err != nil {
		Zero(source)
		return nil, err
	}
	copy(buffer.data, source)
	Zero(source)
	return buffer, nil
}

// Bytes returns a slice into the protected region. It must not outlive
// the Buffer.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.data
}

// String returns a heap copy of the contents, for APIs that only take
// strings.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return string(b.data)
}

// Len returns the size of the secret.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Equal reports whether the buffer holds exactly other, in constant
// time.
func (b *Buffer) Equal(other []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return subtle.ConstantTimeCompare(b.data, other) == 1
}

// Close zeroes and releases the memory. Idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	Zero(b.data)

	var firstError error
	if err := unix.Munlock(b.data); err != nil {
		firstError = fmt.Errorf("secret: munlock failed: %w", err)
	}
	if err := unix.Munmap(b.data); err != nil && firstError == nil {
		firstError = fmt.Errorf("secret: munmap failed: %w", err)
	}
	b.data = nil
	return firstError
}

// Zero overwrites data with zeros.
func Zero(data []byte) {
	for index := range data {
		data[index] = 0
	}
}
