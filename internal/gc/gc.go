// Package gc runs the daily reclamation pass: movies soft-deleted past
// their retention window are hard-deleted along with any of their rows,
// and cache files no longer referenced by any library_*_files table are
// removed from disk. A single cron entry drives both sweeps since they
// share the same cadence and the second depends on the first having run.
package gc

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JustinTDCT/enrichr/internal/cache"
	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/repository"
)

// RetentionWindow is how long a soft-deleted movie's row survives before
// the GC pass hard-deletes it, giving an operator a window to notice an
// accidental removal and restore the file before its metadata is gone.
const RetentionWindow = 7 * 24 * time.Hour

// cacheKinds is every media kind the content-addressed store holds;
// orphan sweeps run across all four so a leftover NFO text blob is
// reclaimed exactly like a leftover poster image.
var cacheKinds = []models.CacheMediaKind{
	models.CacheKindImage, models.CacheKindVideo, models.CacheKindAudio, models.CacheKindText,
}

type Collector struct {
	Movies *repository.MovieRepository
	Assets *repository.AssetRepository
	Cache  *repository.CacheRepository
	Store  *cache.Store

	cronEntry *cron.Cron
}

func New(movies *repository.MovieRepository, assets *repository.AssetRepository,
	cacheRepo *repository.CacheRepository, store *cache.Store) *Collector {
	return &Collector{Movies: movies, Assets: assets, Cache: cacheRepo, Store: store}
}

// Start schedules Run on spec (a standard 5-field cron expression, e.g.
// "0 3 * * *" for daily at 03:00 local time) and begins the cron loop.
func (c *Collector) Start(spec string) error {
	c.cronEntry = cron.New()
	if _, err := c.cronEntry.AddFunc(spec, c.Run); err != nil {
		return err
	}
	c.cronEntry.Start()
	log.Printf("gc: scheduled with cron spec %q", spec)
	return nil
}

func (c *Collector) Stop() {
	if c.cronEntry != nil {
		<-c.cronEntry.Stop().Done()
	}
}

// Run performs one reclamation pass: hard-deleting expired soft-deleted
// movies, then sweeping orphaned cache files of every kind.
func (c *Collector) Run() {
	reclaimed := c.reclaimDeletedMovies()
	swept := c.sweepOrphanedCacheFiles()
	log.Printf("gc: reclaimed %d movie(s), swept %d orphaned cache file(s)", reclaimed, swept)
}

func (c *Collector) reclaimDeletedMovies() int {
	cutoff := time.Now().Add(-RetentionWindow)
	movies, err := c.Movies.ListDeletedBefore(cutoff)
	if err != nil {
		log.Printf("gc: list deleted movies: %v", err)
		return 0
	}

	count := 0
	for _, m := range movies {
		if err := c.Assets.DeleteForEntity(m.ID); err != nil {
			log.Printf("gc: delete assets for %s: %v", m.ID, err)
			continue
		}
		if err := c.Movies.HardDelete(m.ID); err != nil {
			log.Printf("gc: hard delete %s: %v", m.ID, err)
			continue
		}
		count++
	}
	return count
}

func (c *Collector) sweepOrphanedCacheFiles() int {
	count := 0
	for _, kind := range cacheKinds {
		orphans, err := c.Cache.ListOrphaned(kind)
		if err != nil {
			log.Printf("gc: list orphaned %s cache files: %v", kind, err)
			continue
		}
		for _, f := range orphans {
			if err := c.Store.Delete(kind, f.Hash); err != nil {
				log.Printf("gc: delete cached %s file %s: %v", kind, f.Hash, err)
				continue
			}
			if err := c.Cache.Delete(kind, f.ID); err != nil {
				log.Printf("gc: delete cache row %s: %v", f.ID, err)
				continue
			}
			count++
		}
	}
	return count
}
