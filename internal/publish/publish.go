// Package publish writes a movie's resolved metadata and selected assets
// into its library directory in the Kodi sidecar-file convention: a
// <basename>.nfo plus one <basename>-<suffix>.<ext> per selected asset
// type. Publishing reconciles against a content-hash inventory of the
// directory so an unchanged entity never rewrites or re-downloads a file a
// media player might currently have open, and a run that finds everything
// already in place is a true no-op end to end.
package publish

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/enrichr/internal/cache"
	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/providers"
	"github.com/JustinTDCT/enrichr/internal/repository"
)

// NotifyFunc is called after a publish that actually changed something on
// disk, so a player-notification step (e.g. a Kodi JSON-RPC "library scan"
// call) can be chained in without this package depending on that transport
// directly.
type NotifyFunc func(movie *models.Movie)

type Publisher struct {
	Movies       *repository.MovieRepository
	Assets       *repository.AssetRepository
	CacheFiles   *repository.CacheRepository
	LibraryFiles *repository.LibraryFileRepository
	Cache        *cache.Store
	Notify       NotifyFunc
}

func New(movies *repository.MovieRepository, assets *repository.AssetRepository, cacheFiles *repository.CacheRepository,
	libraryFiles *repository.LibraryFileRepository, store *cache.Store) *Publisher {
	return &Publisher{Movies: movies, Assets: assets, CacheFiles: cacheFiles, LibraryFiles: libraryFiles, Cache: store}
}

// PublishInput carries the enrichment-phase outputs the publisher has no
// other way to reach: the trailer URL phase 5 selected and the cast list
// phase 3 resolved, both needed to render a complete NFO.
type PublishInput struct {
	Cast       []providers.CastMember
	Rating     *float64
	TrailerURL string
}

// filenameUnsafe matches any character not allowed in a written filename's
// basename component. Path separators and ".." are stripped separately
// before this filter runs, since "." alone is allowed and would otherwise
// survive a naive character-class check.
var filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9 _().-]`)

// sanitizeBasename strips path separators, parent-directory traversal, and
// any character outside the conservative filename alphabet, so a movie's
// on-disk basename can never be used to write outside its own library
// directory or collide with shell-meaningful characters.
func sanitizeBasename(name string) string {
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	name = strings.ReplaceAll(name, "..", "")
	name = filenameUnsafe.ReplaceAllString(name, "")
	if name == "" {
		return "untitled"
	}
	return name
}

// Publish writes movie's NFO and selected assets to its library directory,
// reconciling against the directory's current contents by content hash
// rather than blindly rewriting every asset on every run. It returns
// whether anything actually changed (copy, rename, delete, or NFO
// content), which callers use to decide whether a player notification is
// warranted. Locked (unmonitored) entities are never touched — the caller
// is expected to have already filtered those out, but Publish re-checks
// defensively.
func (p *Publisher) Publish(movie *models.Movie, input PublishInput) (changed bool, err error) {
	if !movie.Monitored || movie.DeletedAt != nil {
		return false, fmt.Errorf("publish %s: entity is unmonitored or deleted", movie.ID)
	}

	nfoBytes, err := buildMovieNFO(movie, input.Cast, input.TrailerURL, input.Rating)
	if err != nil {
		return false, err
	}
	nfoHash := hashBytes(nfoBytes)

	dir := filepath.Dir(movie.FilePath)
	base := sanitizeBasename(strings.TrimSuffix(filepath.Base(movie.FilePath), filepath.Ext(movie.FilePath)))

	mainMedia := mainMediaSet(movie)

	inv, err := buildInventory(dir, mainMedia)
	if err != nil {
		return false, fmt.Errorf("inventory %s: %w", dir, err)
	}

	expected := map[string]bool{}
	for path := range mainMedia {
		expected[path] = true
	}

	nfoPath := filepath.Join(dir, base+".nfo")
	expected[nfoPath] = true
	nfoChanged := nfoHash != movie.PublishedNFOHash
	if nfoChanged {
		if err := atomicWrite(nfoPath, nfoBytes); err != nil {
			return false, fmt.Errorf("write nfo %s: %w", nfoPath, err)
		}
		changed = true
	}

	var written []*models.LibraryFile
	for assetType, suffix := range models.PublishSuffix {
		if assetType == models.AssetTrailer {
			continue // trailers are referenced by URL in the NFO, not copied
		}
		candidates, err := p.Assets.ListForEntityAndType(movie.ID, assetType)
		if err != nil {
			return changed, fmt.Errorf("list candidates for %s: %w", assetType, err)
		}
		var selected *models.AssetCandidate
		for _, c := range candidates {
			if c.IsSelected {
				selected = c
				break
			}
		}
		if selected == nil || selected.ContentHash == "" {
			continue
		}

		ext := extensionFor(selected.SourceURL)
		destName := base + suffix + ext
		destPath := filepath.Join(dir, destName)
		expected[destPath] = true

		didChange, err := p.reconcileAsset(inv, selected.ContentHash, destPath)
		if err != nil {
			log.Printf("publish: reconcile %s asset for %s: %v", assetType, movie.ID, err)
			continue
		}
		if didChange {
			changed = true
		}

		cacheFile := &models.CacheFile{
			Hash:      selected.ContentHash,
			Path:      p.Cache.Path(models.CacheKindImage, selected.ContentHash),
			Kind:      models.CacheKindImage,
			EntityID:  movie.ID,
			AssetType: assetType,
		}
		if err := p.CacheFiles.Create(cacheFile); err != nil {
			log.Printf("publish: record cache file for %s: %v", destPath, err)
			continue
		}

		written = append(written, &models.LibraryFile{
			EntityID:    movie.ID,
			AssetType:   assetType,
			CacheFileID: cacheFile.ID,
			Path:        destPath,
		})
	}

	if err := p.rebuildLibraryFiles(movie.ID, written); err != nil {
		return changed, err
	}

	if p.cleanupUnauthorized(movie, inv, mainMedia, expected) {
		changed = true
	}

	if err := p.Movies.MarkPublished(movie.ID, nfoHash); err != nil {
		return changed, fmt.Errorf("mark published: %w", err)
	}

	if changed && p.Notify != nil {
		p.Notify(movie)
	}
	return changed, nil
}

// mainMediaSet resolves the absolute paths of every video file this entity
// owns — the primary FilePath plus any stacked parts recorded on the
// movie — so a CD1/CD2 sibling is excluded from inventory and cleanup the
// same as the single-file case.
func mainMediaSet(movie *models.Movie) map[string]bool {
	set := map[string]bool{}
	add := func(p string) {
		if p == "" {
			return
		}
		if abs, err := filepath.Abs(p); err == nil {
			set[abs] = true
		} else {
			set[p] = true
		}
	}
	add(movie.FilePath)
	for _, p := range movie.MainMediaFiles {
		add(p)
	}
	return set
}

// inventory is the hash<->path index of every non-main-media file currently
// in a library directory, built once per publish and updated in place as
// files are skipped, renamed, or copied.
type inventory struct {
	hashToPath map[string]string
	pathToHash map[string]string
}

func buildInventory(dir string, mainMedia map[string]bool) (*inventory, error) {
	inv := &inventory{hashToPath: map[string]string{}, pathToHash: map[string]string{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		full := filepath.Join(dir, e.Name())
		abs, err := filepath.Abs(full)
		if err != nil {
			abs = full
		}
		if mainMedia[abs] {
			continue
		}
		h, err := hashFile(full)
		if err != nil {
			log.Printf("publish: hash %s: %v", full, err)
			continue
		}
		inv.hashToPath[h] = full
		inv.pathToHash[full] = h
	}
	return inv, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// reconcileAsset ensures dest holds the bytes identified by hash, updating
// inv in place, and reports whether it had to touch the filesystem to get
// there:
//   - hash already at dest -> skip, no change.
//   - hash present elsewhere in dir -> atomic rename, no copy.
//   - hash not present anywhere -> atomic copy from the content cache.
func (p *Publisher) reconcileAsset(inv *inventory, hash, dest string) (changed bool, err error) {
	if existing, ok := inv.pathToHash[dest]; ok && existing == hash {
		return false, nil
	}

	if src, ok := inv.hashToPath[hash]; ok && src != dest {
		if err := os.Rename(src, dest); err != nil {
			return false, fmt.Errorf("rename %s -> %s: %w", src, dest, err)
		}
		delete(inv.pathToHash, src)
		inv.pathToHash[dest] = hash
		inv.hashToPath[hash] = dest
		return true, nil
	}

	if err := p.copyFromCache(hash, dest); err != nil {
		return false, err
	}
	inv.pathToHash[dest] = hash
	inv.hashToPath[hash] = dest
	return true, nil
}

// copyFromCache streams the content-addressed cache entry for hash into
// dest via a temp file + atomic rename, so a reader never observes a
// partially written asset.
func (p *Publisher) copyFromCache(hash, dest string) error {
	src, err := p.Cache.Get(models.CacheKindImage, hash)
	if err != nil {
		return fmt.Errorf("open cached asset %s: %w", hash, err)
	}
	defer src.Close()

	tmp := fmt.Sprintf("%s.tmp.%d", dest, time.Now().UnixNano())
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s -> %s: %w", tmp, dest, err)
	}
	return nil
}

// atomicWrite writes data to path via a temp file + rename, the same
// crash-safety guarantee copyFromCache gives binary assets.
func atomicWrite(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// rebuildLibraryFiles replaces every library_image_files row for entityID
// with the set just written, so a publish pass is always a full rebuild
// rather than an incremental patch — stale rows can never survive an
// asset changing its selection.
func (p *Publisher) rebuildLibraryFiles(entityID uuid.UUID, files []*models.LibraryFile) error {
	if err := p.LibraryFiles.DeleteForEntity(models.CacheKindImage, entityID); err != nil {
		return fmt.Errorf("clear library files for %s: %w", entityID, err)
	}
	for _, f := range files {
		f.EntityID = entityID
		if err := p.LibraryFiles.Create(models.CacheKindImage, f); err != nil {
			return fmt.Errorf("record library file %s: %w", f.Path, err)
		}
	}
	return nil
}

// cleanupUnauthorized deletes every inventory file with a managed asset
// filename whose path is not in expected, e.g. a stale poster left by a
// previous selection. Files are matched by path, not by content hash: a
// managed file at an unexpected path is removed even when its bytes match
// an authorized asset. It refuses to
// touch a main-media path as a last-chance guard even though inventory
// already excludes them, and leaves an unmonitored entity's locked cache
// files alone. Returns whether anything was actually removed.
func (p *Publisher) cleanupUnauthorized(movie *models.Movie, inv *inventory, mainMedia, expected map[string]bool) bool {
	removed := false
	for path, hash := range inv.pathToHash {
		if expected[path] {
			continue
		}
		if !isManagedAssetFilename(filepath.Base(path)) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil && mainMedia[abs] {
			continue
		}
		if !movie.Monitored {
			if cf, err := p.CacheFiles.GetByHash(models.CacheKindImage, hash); err == nil && cf.IsLocked {
				continue
			}
		}
		if err := os.Remove(path); err != nil {
			log.Printf("publish: cleanup %s: %v", path, err)
			continue
		}
		removed = true
	}
	return removed
}

// isManagedAssetFilename reports whether filename matches one of the
// publish suffixes this package writes, so cleanup never deletes files it
// did not create (subtitles, extras, user notes, etc.).
func isManagedAssetFilename(filename string) bool {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	if strings.HasSuffix(stem, ".nfo") {
		return true
	}
	for _, suffix := range models.PublishSuffix {
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}
	return ext == ".nfo"
}

func extensionFor(sourceURL string) string {
	ext := filepath.Ext(sourceURL)
	if idx := strings.IndexAny(ext, "?#"); idx >= 0 {
		ext = ext[:idx]
	}
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return strings.ToLower(ext)
	default:
		return ".jpg"
	}
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
