// Package storage keeps the sealed secret words of an engine, addressed by
// the content hash of the sealed bytes.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Common errors.
var (
	ErrNotFound      = errors.New("sealed word not found")
	ErrStorageFull   = errors.New("storage capacity exceeded")
	ErrInvalidHandle = errors.New("invalid sealed word handle")
)

// Handle identifies a sealed word.
type Handle [32]byte

// ComputeHandle returns the handle of a sealed word. Sealing uses a fresh
// nonce, so two seals of the same plaintext never share a handle.
func ComputeHandle(data []byte) Handle {
	return sha256.Sum256(data)
}

func (h Handle) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHandle decodes the hex form produced by String.
func ParseHandle(s string) (Handle, error) {
	var h Handle
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(h) {
		return h, fmt.Errorf("%w: %q", ErrInvalidHandle, s)
	}
	copy(h[:], b)
	return h, nil
}

// Storage defines the interface for sealed word storage.
type Storage interface {
	// Store saves a sealed word and returns its handle.
	Store(ctx context.Context, data []byte) (Handle, error)
	// Load retrieves a sealed word by handle.
	Load(ctx context.Context, handle Handle) ([]byte, error)
	// Delete removes a sealed word.
	Delete(ctx context.Context, handle Handle) error
	// Exists checks if a sealed word exists.
	Exists(ctx context.Context, handle Handle) (bool, error)
	// Len returns the number of stored words.
	Len(ctx context.Context) (int, error)
	// Close closes the storage.
	Close() error
}

// MemoryStorage implements in-memory storage. A capacity of zero means
// unbounded.
type MemoryStorage struct {
	mu       sync.RWMutex
	data     map[Handle][]byte
	capacity int
}

// NewMemoryStorage creates an in-memory storage holding at most capacity
// words.
func NewMemoryStorage(capacity int) *MemoryStorage {
	return &MemoryStorage{
		data:     make(map[Handle][]byte),
		capacity: capacity,
	}
}

func (s *MemoryStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle := ComputeHandle(data)
	if _, exists := s.data[handle]; exists {
		return handle, nil
	}
	if s.capacity > 0 && len(s.data) >= s.capacity {
		return Handle{}, ErrStorageFull
	}
	s.data[handle] = append([]byte(nil), data...)
	return handle, nil
}

func (s *MemoryStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[handle]
	if !exists {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, handle Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[handle]; !exists {
		return ErrNotFound
	}
	delete(s.data, handle)
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[handle]
	return exists, nil
}

func (s *MemoryStorage) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[Handle][]byte)
	return nil
}

// FileStorage implements file-based storage, one file per word.
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates a file-based storage rooted at baseDir.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStorage{baseDir: baseDir}, nil
}

func (s *FileStorage) path(handle Handle) string {
	h := handle.String()
	// Shard by the first byte to keep directories small.
	return filepath.Join(s.baseDir, h[:2], h)
}

func (s *FileStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)
	path := s.path(handle)

	if _, err := os.Stat(path); err == nil {
		return handle, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return Handle{}, fmt.Errorf("create shard dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return Handle{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Handle{}, fmt.Errorf("rename temp file: %w", err)
	}
	return handle, nil
}

func (s *FileStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	data, err := os.ReadFile(s.path(handle))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (s *FileStorage) Delete(ctx context.Context, handle Handle) error {
	if err := os.Remove(s.path(handle)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *FileStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	_, err := os.Stat(s.path(handle))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat file: %w", err)
}

func (s *FileStorage) Len(ctx context.Context) (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.baseDir, "??", "*"))
	if err != nil {
		return 0, fmt.Errorf("list words: %w", err)
	}
	n := 0
	for _, m := range matches {
		if filepath.Ext(m) != ".tmp" {
			n++
		}
	}
	return n, nil
}

func (s *FileStorage) Close() error {
	return nil
}
