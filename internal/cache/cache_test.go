package cache

import (
	"bytes"
	"os"
	"testing"

	"github.com/JustinTDCT/enrichr/internal/models"
)

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	content := []byte("fake poster bytes")
	hash, size, path, err := s.Put(models.CacheKindImage, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}
	if !s.Has(models.CacheKindImage, hash) {
		t.Errorf("Has reports false right after Put")
	}

	f, err := s.Get(models.CacheKindImage, hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer f.Close()
	got, _ := os.ReadFile(path)
	if !bytes.Equal(got, content) {
		t.Errorf("stored content mismatch")
	}
}

func TestPutIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	content := []byte("identical bytes")

	hash1, _, path1, err := s.Put(models.CacheKindImage, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("first Put: %v", err)
	}
	hash2, _, path2, err := s.Put(models.CacheKindImage, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if hash1 != hash2 || path1 != path2 {
		t.Errorf("identical content should resolve to the same hash and path")
	}
}

func TestDeleteMissingIsNotError(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Delete(models.CacheKindImage, "0000000000000000000000000000000000000000000000000000000000000000"[:64]); err != nil {
		t.Errorf("Delete on missing file should not error, got %v", err)
	}
}
