package publish

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JustinTDCT/enrichr/internal/cache"
	"github.com/JustinTDCT/enrichr/internal/models"
)

func TestBuildMovieNFOIncludesExternalIDs(t *testing.T) {
	movie := &models.Movie{
		Title:       "Fight Club",
		Year:        1999,
		ExternalIDs: models.ExternalIDs{TMDB: "550", IMDB: "tt0137523"},
	}
	rating := 8.4
	data, err := buildMovieNFO(movie, nil, "https://example.com/trailer.mp4", &rating)
	if err != nil {
		t.Fatalf("buildMovieNFO: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "<title>Fight Club</title>") {
		t.Errorf("missing title in NFO: %s", s)
	}
	if !strings.Contains(s, `type="tmdb"`) || !strings.Contains(s, "550") {
		t.Errorf("missing tmdb uniqueid: %s", s)
	}
	if !strings.Contains(s, "trailer.mp4") {
		t.Errorf("missing trailer url: %s", s)
	}
}

func TestIsManagedAssetFilename(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"Fight Club.nfo", true},
		{"Fight Club-poster.jpg", true},
		{"Fight Club-fanart.jpg", true},
		{"Fight Club.mkv", false},
		{"subtitles.en.srt", false},
	}
	for _, c := range cases {
		if got := isManagedAssetFilename(c.name); got != c.want {
			t.Errorf("isManagedAssetFilename(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSanitizeBasename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"The Matrix (1999)", "The Matrix (1999)"},
		{"../../etc/passwd", "etcpasswd"},
		{"a/b\\c", "abc"},
		{"weird<>:\"|?*name", "weirdname"},
		{"", "untitled"},
	}
	for _, c := range cases {
		if got := sanitizeBasename(c.in); got != c.want {
			t.Errorf("sanitizeBasename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// TestReconcileAssetSkipsWhenAlreadyCorrect is scenario S3: a second
// reconcile of the same hash against the same destination must not touch
// the filesystem or the inventory.
func TestReconcileAssetSkipsWhenAlreadyCorrect(t *testing.T) {
	dir := t.TempDir()
	store := cache.New(dir)
	hash, _, _, err := store.Put(models.CacheKindImage, bytes.NewReader([]byte("poster-bytes")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	p := &Publisher{Cache: store}
	dest := filepath.Join(dir, "Movie-poster.jpg")

	inv := &inventory{hashToPath: map[string]string{}, pathToHash: map[string]string{}}
	changed, err := p.reconcileAsset(inv, hash, dest)
	if err != nil {
		t.Fatalf("reconcileAsset (copy): %v", err)
	}
	if !changed {
		t.Fatalf("first reconcile should copy and report changed")
	}

	changed, err = p.reconcileAsset(inv, hash, dest)
	if err != nil {
		t.Fatalf("reconcileAsset (skip): %v", err)
	}
	if changed {
		t.Errorf("re-reconciling an already-correct asset reported changed")
	}
}

// TestReconcileAssetRenamesMisplacedFile is scenario S4: if the expected
// hash is present under a different path, reconcileAsset must rename it
// back rather than re-copying from the cache.
func TestReconcileAssetRenamesMisplacedFile(t *testing.T) {
	dir := t.TempDir()
	store := cache.New(dir)
	hash, _, _, err := store.Put(models.CacheKindImage, bytes.NewReader([]byte("poster-bytes")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	strayPath := filepath.Join(dir, "poster.jpg")
	if err := os.WriteFile(strayPath, []byte("poster-bytes"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	p := &Publisher{Cache: store}
	dest := filepath.Join(dir, "The Matrix (1999)-poster.jpg")
	inv := &inventory{
		hashToPath: map[string]string{hash: strayPath},
		pathToHash: map[string]string{strayPath: hash},
	}

	changed, err := p.reconcileAsset(inv, hash, dest)
	if err != nil {
		t.Fatalf("reconcileAsset (rename): %v", err)
	}
	if !changed {
		t.Errorf("rename of a misplaced asset should report changed")
	}
	if _, err := os.Stat(strayPath); !os.IsNotExist(err) {
		t.Errorf("stray file should no longer exist at %s", strayPath)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("expected renamed file at %s: %v", dest, err)
	}
	if inv.pathToHash[dest] != hash || inv.hashToPath[hash] != dest {
		t.Errorf("inventory not updated after rename: %+v", inv)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := []struct{ url, want string }{
		{"https://image.tmdb.org/poster.jpg", ".jpg"},
		{"https://image.tmdb.org/poster.png?size=large", ".png"},
		{"https://image.tmdb.org/poster", ".jpg"},
	}
	for _, c := range cases {
		if got := extensionFor(c.url); got != c.want {
			t.Errorf("extensionFor(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}
