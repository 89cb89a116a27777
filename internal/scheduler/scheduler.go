// Package scheduler drives the two cadence-based background triggers every
// library can opt into: a file scanner pass and a provider-update pass.
// Cadences are expressed in hours per library rather than raw cron
// expressions since that is what the operator-facing configuration exposes;
// this package translates an hour interval into an actual cron schedule.
package scheduler

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/repository"
)

// TriggerFunc enqueues the work a due library needs; the scheduler itself
// never touches the job queue directly so it stays agnostic of payload
// shape.
type TriggerFunc func(libraryID uuid.UUID)

type Scheduler struct {
	cron       *cron.Cron
	schedulers *repository.SchedulerRepository
	entries    map[uuid.UUID][2]cron.EntryID // library -> [fileScan, providerUpdate] entry ids

	onFileScan       TriggerFunc
	onProviderUpdate TriggerFunc
}

func New(schedulers *repository.SchedulerRepository, onFileScan, onProviderUpdate TriggerFunc) *Scheduler {
	return &Scheduler{
		cron:             cron.New(cron.WithSeconds()),
		schedulers:       schedulers,
		entries:          make(map[uuid.UUID][2]cron.EntryID),
		onFileScan:       onFileScan,
		onProviderUpdate: onProviderUpdate,
	}
}

// Start loads every library's scheduler config and registers its cron
// entries, then starts the underlying cron loop.
func (s *Scheduler) Start() error {
	configs, err := s.schedulers.List()
	if err != nil {
		return fmt.Errorf("load scheduler config: %w", err)
	}
	for _, c := range configs {
		s.register(c)
	}
	s.cron.Start()
	log.Printf("scheduler: started with %d library entr%s", len(configs), plural(len(configs)))
	return nil
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// register installs cron entries for a single library's config, replacing
// any that already exist for it.
func (s *Scheduler) register(c *models.SchedulerConfig) {
	s.unregister(c.LibraryID)

	var fileScanID, providerUpdateID cron.EntryID
	if c.FileScannerEnabled {
		libraryID := c.LibraryID
		fileScanID, _ = s.cron.AddFunc(hourlySpec(c.FileScannerIntervalHrs), func() {
			s.runFileScan(libraryID)
		})
	}
	if c.ProviderUpdaterEnabled {
		libraryID := c.LibraryID
		providerUpdateID, _ = s.cron.AddFunc(hourlySpec(c.ProviderUpdaterIntervalHrs), func() {
			s.runProviderUpdate(libraryID)
		})
	}
	s.entries[c.LibraryID] = [2]cron.EntryID{fileScanID, providerUpdateID}
}

func (s *Scheduler) unregister(libraryID uuid.UUID) {
	if ids, ok := s.entries[libraryID]; ok {
		s.cron.Remove(ids[0])
		s.cron.Remove(ids[1])
		delete(s.entries, libraryID)
	}
}

// Reconfigure re-reads a single library's scheduler config and replaces its
// cron entries, used when an operator edits the cadence at runtime.
func (s *Scheduler) Reconfigure(libraryID uuid.UUID) error {
	c, err := s.schedulers.Get(libraryID)
	if err != nil {
		return err
	}
	s.register(c)
	return nil
}

// TriggerNow runs a library's file scan or provider update immediately,
// bypassing its cadence — the manual "scan now" / "refresh now" action.
func (s *Scheduler) TriggerNow(libraryID uuid.UUID, kind models.JobKind) {
	switch kind {
	case models.JobFileScan:
		s.runFileScan(libraryID)
	case models.JobProviderUpdate:
		s.runProviderUpdate(libraryID)
	default:
		log.Printf("scheduler: trigger now called with unsupported kind %q", kind)
	}
}

func (s *Scheduler) runFileScan(libraryID uuid.UUID) {
	if err := s.schedulers.MarkFileScanRun(libraryID); err != nil {
		log.Printf("scheduler: mark file scan run for %s: %v", libraryID, err)
	}
	if s.onFileScan != nil {
		s.onFileScan(libraryID)
	}
}

func (s *Scheduler) runProviderUpdate(libraryID uuid.UUID) {
	if err := s.schedulers.MarkProviderUpdateRun(libraryID); err != nil {
		log.Printf("scheduler: mark provider update run for %s: %v", libraryID, err)
	}
	if s.onProviderUpdate != nil {
		s.onProviderUpdate(libraryID)
	}
}

// hourlySpec turns an hour interval into a 6-field cron spec firing on the
// hour at every hour of the day divisible by N, so the last gap of a day is
// shorter when N does not divide 24. An interval of 24h or more fires once
// a day at midnight, and a non-positive interval falls back to that daily
// cadence so a misconfigured library never ends up running every tick.
func hourlySpec(hours int) string {
	if hours <= 0 {
		hours = 24
	}
	if hours >= 24 {
		return "0 0 0 */1 * *"
	}
	return fmt.Sprintf("0 0 */%d * * *", hours)
}
