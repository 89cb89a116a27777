package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/enrichr/internal/breaker"
	"github.com/JustinTDCT/enrichr/internal/cache"
	"github.com/JustinTDCT/enrichr/internal/config"
	"github.com/JustinTDCT/enrichr/internal/db"
	"github.com/JustinTDCT/enrichr/internal/enrich"
	"github.com/JustinTDCT/enrichr/internal/gc"
	"github.com/JustinTDCT/enrichr/internal/identify"
	"github.com/JustinTDCT/enrichr/internal/jobqueue"
	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/notify"
	"github.com/JustinTDCT/enrichr/internal/providers"
	"github.com/JustinTDCT/enrichr/internal/publish"
	"github.com/JustinTDCT/enrichr/internal/ratelimit"
	"github.com/JustinTDCT/enrichr/internal/registry"
	"github.com/JustinTDCT/enrichr/internal/repository"
	"github.com/JustinTDCT/enrichr/internal/scheduler"
	"github.com/JustinTDCT/enrichr/internal/selector"
)

const bannerArt = `
   ______                     _       __
  / ____/___  _____(_)____/ /_  _____
 / __/ / __ \/ ___/ / ___/ __ \/ ___/
/ /___/ / / / /  / / /__/ / / / /
\____/_/ /_/_/  /_/\___/_/ /_/_/
`

// identifyPayload/enrichPayload/publishPayload are the job_queue payloads
// this worker understands. fileScan/providerUpdate/notifyPlayer/
// webhookReceived kinds are accepted by the queue but have no handler here
// yet — there is no filesystem scanner or player-notification transport in
// this build, so those jobs are logged and dropped rather than retried
// forever.
type identifyPayload struct {
	MovieID uuid.UUID `json:"movie_id"`
}

type enrichPayload struct {
	MovieID uuid.UUID `json:"movie_id"`
}

type publishPayload struct {
	MovieID uuid.UUID `json:"movie_id"`
}

type notifyPlayerPayload struct {
	MovieID uuid.UUID `json:"movie_id"`
	Title   string    `json:"title"`
}

type libraryPayload struct {
	LibraryID uuid.UUID `json:"library_id"`
}

func main() {
	fmt.Println(bannerArt)
	fmt.Println("  Media Enrichment Engine")

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database, "migrations"); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	store := cache.New(cfg.DataDir)

	limiter := ratelimit.New(cfg.DefaultRateLimitRequests, cfg.DefaultRateLimitWindow)
	breakers := breaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerResetTimeout)

	reg := registry.New()
	registerProviders(reg, cfg, limiter, breakers)

	queue := jobqueue.New(database)

	movies := repository.NewMovieRepository(database)
	libraries := repository.NewLibraryRepository(database)
	assets := repository.NewAssetRepository(database)
	cacheFiles := repository.NewCacheRepository(database)
	libraryFiles := repository.NewLibraryFileRepository(database)
	schedulers := repository.NewSchedulerRepository(database)
	activity := repository.NewActivityRepository(database)

	hub := notify.NewHub()

	priority := selector.ProviderPriority{"tmdb", "tvdb", "fanarttv", "omdb"}

	orchestrator := enrich.New(reg, movies, assets, activity, store, priority)
	publisher := publish.New(movies, assets, cacheFiles, libraryFiles, store)
	publisher.Notify = func(m *models.Movie) {
		hub.Notify(notify.Event{Kind: notify.EventComplete, EntityID: m.ID, Phase: "publish", Message: m.Title})
		_, err := queue.Add(models.JobNotifyPlayer, models.PriorityBackground2,
			notifyPlayerPayload{MovieID: m.ID, Title: m.Title}, false, "")
		if err != nil {
			log.Printf("enqueue notifyPlayer for %s: %v", m.ID, err)
		}
	}

	sched := scheduler.New(schedulers, func(libraryID uuid.UUID) {
		enqueueLibraryJob(queue, models.JobFileScan, libraryID)
	}, func(libraryID uuid.UUID) {
		enqueueLibraryJob(queue, models.JobProviderUpdate, libraryID)
	})
	if err := sched.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer sched.Stop()

	collector := gc.New(movies, assets, cacheFiles, store)
	if err := collector.Start(cfg.GCCron); err != nil {
		log.Fatalf("start garbage collector: %v", err)
	}
	defer collector.Stop()

	if n, err := queue.ResetStalled(0); err != nil {
		log.Printf("reset stalled jobs at startup: %v", err)
	} else if n > 0 {
		log.Printf("requeued %d job(s) left processing by a previous run", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &worker{
		queue:        queue,
		movies:       movies,
		libraries:    libraries,
		orchestrator: orchestrator,
		publisher:    publisher,
		hub:          hub,
	}

	log.Printf("starting %d worker(s)", cfg.WorkerConcurrency)
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		go w.run(ctx)
	}

	go stallReaper(queue)

	select {}
}

// registerProviders builds one Guarded adapter per configured API key and
// installs it in reg. A provider with no key configured is simply never
// registered, so the fetch fan-out naturally skips it.
func registerProviders(reg *registry.Registry, cfg *config.Config, limiter *ratelimit.Limiter, breakers *breaker.Registry) {
	register := func(p providers.Provider) {
		if perMin := p.Capabilities().RateLimitPerMin; perMin > 0 {
			limiter.Configure(p.Name(), perMin, time.Minute)
		}
		reg.Register(providers.NewGuarded(p, limiter, breakers))
	}
	if cfg.TMDBAPIKey != "" {
		register(providers.NewTMDB(cfg.TMDBAPIKey))
	}
	if cfg.OMDBAPIKey != "" {
		register(providers.NewOMDb(cfg.OMDBAPIKey))
	}
	if cfg.FanartTVAPIKey != "" {
		register(providers.NewFanartTV(cfg.FanartTVAPIKey))
	}
	if cfg.TVDBAPIKey != "" {
		register(providers.NewTVDB(cfg.TVDBAPIKey))
	}
}

func enqueueLibraryJob(queue *jobqueue.Queue, kind models.JobKind, libraryID uuid.UUID) {
	_, err := queue.Add(kind, models.PriorityBackground2, libraryPayload{LibraryID: libraryID}, false,
		string(kind)+"-"+libraryID.String())
	if err != nil {
		log.Printf("enqueue %s for library %s: %v", kind, libraryID, err)
	}
}

// worker pulls jobs off the queue one at a time and dispatches them by
// kind. A single goroutine runs this loop per configured concurrency slot.
type worker struct {
	queue        *jobqueue.Queue
	movies       *repository.MovieRepository
	libraries    *repository.LibraryRepository
	orchestrator *enrich.Orchestrator
	publisher    *publish.Publisher
	hub          *notify.Hub
}

func (w *worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.queue.PickNext()
		if err != nil {
			log.Printf("worker: pick next job: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			time.Sleep(time.Second)
			continue
		}

		if err := w.dispatch(ctx, job); err != nil {
			log.Printf("worker: job %s (%s) failed: %v", job.ID, job.Kind, err)
			if retried, rerr := w.queue.Fail(job.ID); rerr != nil {
				log.Printf("worker: requeue job %s: %v", job.ID, rerr)
			} else if !retried {
				log.Printf("worker: job %s exhausted retries, dropped", job.ID)
			}
			continue
		}
		if err := w.queue.Complete(job.ID); err != nil {
			log.Printf("worker: complete job %s: %v", job.ID, err)
		}
	}
}

func (w *worker) dispatch(ctx context.Context, job *models.Job) error {
	switch job.Kind {
	case models.JobIdentify:
		var p identifyPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode identify payload: %w", err)
		}
		return w.handleIdentify(ctx, p.MovieID)

	case models.JobEnrich:
		var p enrichPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode enrich payload: %w", err)
		}
		return w.handleEnrich(ctx, p.MovieID)

	case models.JobPublish:
		var p publishPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode publish payload: %w", err)
		}
		return w.handlePublish(p.MovieID)

	case models.JobFileScan, models.JobProviderUpdate, models.JobNotifyPlayer, models.JobWebhookReceived:
		log.Printf("worker: %s job has no handler in this build, dropping", job.Kind)
		return nil

	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

// handleIdentify derives a search title/year from the movie's filename and
// resolves it against the search-capable providers, tried in registry order
// (which is unordered) until one returns results, attaching the external id
// of that provider's most confident result before handing off to
// enrichment.
func (w *worker) handleIdentify(ctx context.Context, movieID uuid.UUID) error {
	movie, err := w.movies.GetByID(movieID)
	if err != nil {
		return fmt.Errorf("load movie %s: %w", movieID, err)
	}

	w.hub.Notify(notify.Event{Kind: notify.EventStart, EntityID: movie.ID, Phase: "identify"})

	if movie.ExternalIDs.Empty() {
		title := identify.TitleFromFilename(movie.FilePath)
		year := identify.YearFromFilename(movie.FilePath)

		candidates := w.orchestrator.Registry.SupportingSearch()
		for _, p := range candidates {
			results, err := p.Search(ctx, title, models.MediaKindMovie, year)
			if err != nil || len(results) == 0 {
				continue
			}
			best := results[0]
			for _, r := range results[1:] {
				if r.Confidence > best.Confidence {
					best = r
				}
			}
			switch p.Name() {
			case "tmdb":
				movie.ExternalIDs.TMDB = best.ExternalID
			case "omdb":
				movie.ExternalIDs.IMDB = best.ExternalID
			case "tvdb":
				movie.ExternalIDs.TVDB = best.ExternalID
			}
			if movie.Title == "" {
				movie.Title = best.Title
			}
			if movie.Year == 0 {
				movie.Year = best.Year
			}
			break
		}
	}

	if movie.ExternalIDs.Empty() {
		w.hub.Notify(notify.Event{Kind: notify.EventError, EntityID: movie.ID, Phase: "identify", Message: "no provider matched"})
		return fmt.Errorf("identify %s: no provider matched %q", movieID, movie.FilePath)
	}

	movie.Status = models.StatusIdentified
	if err := w.movies.UpdateMetadata(movie); err != nil {
		return fmt.Errorf("persist identified movie %s: %w", movieID, err)
	}

	w.hub.Notify(notify.Event{Kind: notify.EventComplete, EntityID: movie.ID, Phase: "identify"})

	_, err = w.queue.Add(models.JobEnrich, models.PriorityBackground2, enrichPayload{MovieID: movie.ID}, false, "")
	return err
}

func (w *worker) handleEnrich(ctx context.Context, movieID uuid.UUID) error {
	movie, err := w.movies.GetByID(movieID)
	if err != nil {
		return fmt.Errorf("load movie %s: %w", movieID, err)
	}

	w.hub.Notify(notify.Event{Kind: notify.EventStart, EntityID: movie.ID, Phase: "enrich"})

	progress := func(phase string, done, total int) {
		w.hub.Notify(notify.Event{Kind: notify.EventProgress, EntityID: movie.ID, Phase: phase, Done: done, Total: total})
	}

	result, err := w.orchestrator.Run(ctx, movie, progress)
	if err != nil {
		w.hub.Notify(notify.Event{Kind: notify.EventError, EntityID: movie.ID, Phase: "enrich", Message: err.Error()})
		return err
	}

	w.hub.Notify(notify.Event{Kind: notify.EventComplete, EntityID: movie.ID, Phase: "enrich",
		Message: fmt.Sprintf("%d asset type(s) selected", result.AssetsSelected)})

	library, err := w.libraries.GetByID(movie.LibraryID)
	if err == nil && library.AutoPublish {
		_, err = w.queue.Add(models.JobPublish, models.PriorityBackground2, publishPayload{MovieID: movie.ID}, false, "")
		return err
	}
	return nil
}

func (w *worker) handlePublish(movieID uuid.UUID) error {
	movie, err := w.movies.GetByID(movieID)
	if err != nil {
		return fmt.Errorf("load movie %s: %w", movieID, err)
	}

	w.hub.Notify(notify.Event{Kind: notify.EventStart, EntityID: movie.ID, Phase: "publish"})

	input := publish.PublishInput{TrailerURL: w.selectedTrailerURL(movie.ID)}
	if movie.CastJSON != "" {
		if err := json.Unmarshal([]byte(movie.CastJSON), &input.Cast); err != nil {
			log.Printf("publish: decode cast for %s: %v", movie.ID, err)
		}
	}

	if _, err := w.publisher.Publish(movie, input); err != nil {
		w.hub.Notify(notify.Event{Kind: notify.EventError, EntityID: movie.ID, Phase: "publish", Message: err.Error()})
		return err
	}
	return nil
}

// selectedTrailerURL looks up the trailer candidate phase 5 marked selected
// for movieID, if any. There is no published-trailer column on the movie
// row — the candidate table is the only record of the winner.
func (w *worker) selectedTrailerURL(movieID uuid.UUID) string {
	candidates, err := w.publisher.Assets.ListForEntityAndType(movieID, models.AssetTrailer)
	if err != nil {
		log.Printf("publish: list trailer candidates for %s: %v", movieID, err)
		return ""
	}
	for _, c := range candidates {
		if c.IsSelected {
			return c.SourceURL
		}
	}
	return ""
}

// stallReaper periodically requeues jobs a crashed worker left stuck in
// "processing", so a restart is never required to recover the queue.
func stallReaper(queue *jobqueue.Queue) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		n, err := queue.ResetStalled(10 * time.Minute)
		if err != nil {
			log.Printf("stall reaper: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("stall reaper: requeued %d stalled job(s)", n)
		}
	}
}
