// Package cache implements the content-addressed flat store that sits
// between provider downloads and library publishing: every fetched asset is
// written once, keyed by its SHA-256 hash, and every publish operation
// copies from this store rather than re-fetching from providers.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JustinTDCT/enrichr/internal/models"
)

// Store roots a content-addressed file tree under baseDir/cache/<kind>/<hash[0:2]>/<hash>.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) pathFor(kind models.CacheMediaKind, hash string) string {
	return filepath.Join(s.baseDir, "cache", string(kind), hash[:2], hash)
}

// Put writes r's contents into the store under their content hash and
// returns the hash, size and final path. If a file with that hash already
// exists, Put is a no-op write (idempotent) and simply returns the existing
// path.
func (s *Store) Put(kind models.CacheMediaKind, r io.Reader) (hash string, size int64, path string, err error) {
	tmp, err := os.CreateTemp(s.baseDir, "cache-put-*")
	if err != nil {
		return "", 0, "", fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		tmp.Close()
		return "", 0, "", fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, "", fmt.Errorf("close temp: %w", err)
	}

	hash = hex.EncodeToString(h.Sum(nil))
	finalPath := s.pathFor(kind, hash)

	if _, err := os.Stat(finalPath); err == nil {
		return hash, n, finalPath, nil
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", 0, "", fmt.Errorf("mkdir: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", 0, "", fmt.Errorf("rename into place: %w", err)
	}
	return hash, n, finalPath, nil
}

// Get opens the stored file for kind/hash.
func (s *Store) Get(kind models.CacheMediaKind, hash string) (*os.File, error) {
	return os.Open(s.pathFor(kind, hash))
}

// Has reports whether kind/hash is already present in the store.
func (s *Store) Has(kind models.CacheMediaKind, hash string) bool {
	_, err := os.Stat(s.pathFor(kind, hash))
	return err == nil
}

// Delete removes kind/hash from the store. Missing files are not an error —
// garbage collection calls Delete speculatively for entries whose backing
// file may already be gone.
func (s *Store) Delete(kind models.CacheMediaKind, hash string) error {
	err := os.Remove(s.pathFor(kind, hash))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s/%s: %w", kind, hash, err)
	}
	return nil
}

// Path returns the on-disk path for kind/hash without opening it, used by
// the publisher to record where a cached file lives.
func (s *Store) Path(kind models.CacheMediaKind, hash string) string {
	return s.pathFor(kind, hash)
}
