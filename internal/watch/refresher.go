package watch

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/quote"
)

// Refetcher is the part of *quote.Coordinator the refresher drives.
type Refetcher interface {
	Refetch() error
}

// Refresher periodically refetches the current configuration so a long
// running session picks up catalog or price changes on the remote side.
type Refresher struct {
	scheduler gocron.Scheduler
	target    Refetcher
	logger    *slog.Logger
	jobID     string
}

// NewRefresher schedules target.Refetch every interval. Call Start to begin.
func NewRefresher(target Refetcher, interval time.Duration, logger *slog.Logger) (*Refresher, error) {
	if target == nil {
		return nil, ferrors.ValidationError("refresh target is required").Build()
	}
	if interval <= 0 {
		return nil, ferrors.ValidationError("refresh interval must be positive").
			WithContext("interval", interval.String()).
			Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create scheduler").Build()
	}
	r := &Refresher{scheduler: s, target: target, logger: logger}

	job, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.refetch),
		gocron.WithName("refetch"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to schedule refetch").
			WithContext("interval", interval.String()).
			Build()
	}
	r.jobID = job.ID().String()
	return r, nil
}

// JobID identifies the scheduled refetch job.
func (r *Refresher) JobID() string { return r.jobID }

// Start begins running the schedule.
func (r *Refresher) Start() {
	r.logger.Info("Starting refresh scheduler", slog.String("job_id", r.jobID))
	r.scheduler.Start()
}

// Stop shuts the scheduler down and waits for a running refetch.
func (r *Refresher) Stop() error {
	r.logger.Info("Stopping refresh scheduler")
	return r.scheduler.Shutdown()
}

func (r *Refresher) refetch() {
	err := r.target.Refetch()
	switch {
	case err == nil:
		r.logger.Debug("Scheduled refetch issued")
	case errors.Is(err, quote.ErrCoordinatorClosed):
		r.logger.Debug("Scheduled refetch skipped, coordinator closed")
	default:
		r.logger.Warn("Scheduled refetch failed", logfields.Error(err))
	}
}
