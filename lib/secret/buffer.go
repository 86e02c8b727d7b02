// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer holds credential material and identity keys in memory the
// rest of the process cannot leak by accident: the backing region is
// an anonymous mmap outside the Go heap, pinned against swap and
// excluded from core dumps, and is zeroed when the buffer is closed.
//
// A Buffer is not copyable. Accessing its contents after Close panics,
// which turns a use-after-release of a credential into a loud failure
// instead of a read of zeroed (or reused) memory.
type Buffer struct {
	mu     sync.Mutex
	region []byte
	closed bool
}

// New allocates a locked region of the given size. The region lives
// outside the Go heap, so the garbage collector never copies or moves
// the secret, and mlock plus MADV_DONTDUMP keep it out of swap and
// core dumps. All three protections are mandatory: if any cannot be
// established the allocation fails rather than degrade silently.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size %d is not positive", size)
	}

	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: allocating locked region: %w", err)
	}
	if err := unix.Mlock(region); err != nil {
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: pinning region against swap: %w", err)
	}
	if err := unix.Madvise(region, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(region)
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: excluding region from core dumps: %w", err)
	}

	return &Buffer{region: region}, nil
}

// NewFromBytes moves existing secret material into a locked region.
// The source slice is zeroed after the copy, so a credential read off
// a wire or out of a decrypted bundle stops existing on the Go heap
// the moment it is registered.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("secret: refusing to store an empty secret")
	}

	buffer, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(buffer.region, source)
	Zero(source)
	return buffer, nil
}

// Bytes returns the secret. The slice aliases the locked region, so
// callers must not retain it past the buffer's lifetime; the broker
// hashes it and lets it go. Panics after Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.region
}

// String copies the secret into an ordinary Go string. The copy is
// heap-allocated and unprotected, so this exists only for API
// boundaries that demand a string (age identities, bundle values);
// everything else should use Bytes. Panics after Close.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return string(b.region)
}

// Len returns the secret's size in bytes, or zero after Close.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.region)
}

// Close zeros the region, then unlocks and unmaps it. Idempotent; the
// first syscall failure is reported, but the region is gone from this
// process either way.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	Zero(b.region)

	var firstErr error
	if err := unix.Munlock(b.region); err != nil {
		firstErr = fmt.Errorf("secret: munlock: %w", err)
	}
	if err := unix.Munmap(b.region); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("secret: munmap: %w", err)
	}
	b.region = nil
	return firstErr
}

// Zero overwrites a slice with zero bytes. Used to scrub transient
// heap copies of secret material once it has moved into a Buffer.
func Zero(data []byte) {
	for index := range data {
		data[index] = 0
	}
}
