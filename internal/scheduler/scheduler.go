package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

// Maintainer is the part of fishing.Service the scheduler drives.
type Maintainer interface {
	PruneCache(ctx context.Context) int
	Prewarm(ctx context.Context, coord fishing.Coordinate) error
}

// Scheduler periodically prunes the weather cache and prewarms favorite spots.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Maintainer
	spots     []fishing.Coordinate
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(spots []fishing.Coordinate, interval time.Duration, service Maintainer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		spots:     spots,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce prunes expired cache entries, then refreshes every favorite spot concurrently.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed := s.service.PruneCache(ctx)
	s.logger.Info("scheduler: pruned weather cache", "removed", removed)

	if len(s.spots) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, spot := range s.spots {
		wg.Add(1)
		go func(spot fishing.Coordinate) {
			defer wg.Done()
			if err := s.service.Prewarm(ctx, spot); err != nil {
				s.logger.Warn("scheduler: prewarm failed",
					"lat", spot.Latitude,
					"lon", spot.Longitude,
					"error", err)
			}
		}(spot)
	}
	wg.Wait()
	s.logger.Info("scheduler: prewarmed favorite spots", "count", len(s.spots))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
