// Package images stores encoded cover candidates on disk, addressed by the
// SHA-256 of their bytes.
package images

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/inkwellpress/inkwell/internal/errors"
	"github.com/inkwellpress/inkwell/internal/media/codec"
)

// extensions are probed in order when looking up a blob by ID.
var extensions = []string{"jpg", "webp", "png", "gif"}

// Storage manages cover blobs on the filesystem.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex
}

// NewStorage creates a Storage rooted at {basePath}/covers.
func NewStorage(basePath string) (*Storage, error) {
	return NewStorageWithSubdir(basePath, "covers")
}

// NewStorageWithSubdir creates a Storage rooted at {basePath}/{subdir}.
func NewStorageWithSubdir(basePath, subdir string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if subdir == "" {
		return nil, fmt.Errorf("subdirectory cannot be empty")
	}

	storagePath := filepath.Join(basePath, subdir)
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", subdir, err)
	}

	return &Storage{basePath: storagePath}, nil
}

// ContentID returns the hex SHA-256 of data.
func ContentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores data and returns its content ID. Storing identical bytes twice
// is a no-op.
func (s *Storage) Put(data []byte, mime string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image data cannot be empty")
	}

	id := ContentID(data)
	path := s.Path(id, mime)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return id, nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to commit image file: %w", err)
	}
	return id, nil
}

// Get returns the bytes and media type stored under id.
func (s *Storage) Get(id string) ([]byte, string, error) {
	if id == "" {
		return nil, "", fmt.Errorf("ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path, ok := s.find(id)
	if !ok {
		return nil, "", errors.NotFoundf("cover %s not found", shortID(id))
	}

	data, err := os.ReadFile(path) //#nosec G304 -- path built from content hash
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image file: %w", err)
	}

	mime := "application/octet-stream"
	if f, ok := codec.Detect(data); ok {
		mime = f.MIME()
	}
	return data, mime, nil
}

// Exists reports whether a blob is stored under id.
func (s *Storage) Exists(id string) bool {
	if id == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.find(id)
	return ok
}

// Delete removes the blob stored under id. Missing blobs are not an error.
func (s *Storage) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.find(id)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

// Check verifies the storage directory exists and accepts writes.
func (s *Storage) Check() error {
	info, err := os.Stat(s.basePath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.basePath)
	}
	f, err := os.CreateTemp(s.basePath, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// Path returns the file path for id stored with the given media type.
func (s *Storage) Path(id, mime string) string {
	return filepath.Join(s.basePath, id+"."+codec.Extension(mime))
}

func (s *Storage) find(id string) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(s.basePath, id+"."+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
