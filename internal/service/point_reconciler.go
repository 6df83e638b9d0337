package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/honmoon-go-api/internal/observability"
	"github.com/noah-isme/honmoon-go-api/internal/repository"
)

const defaultReconcileInterval = 10 * time.Minute

// PointReconciler keeps user point totals equal to the sum of their history.
type PointReconciler struct {
	points    repository.PointRepository
	interval  time.Duration
	scheduler gocron.Scheduler
	logger    zerolog.Logger
}

// NewPointReconciler constructs the reconciliation job.
func NewPointReconciler(points repository.PointRepository, interval time.Duration, logger zerolog.Logger) (*PointReconciler, error) {
	if interval <= 0 {
		interval = defaultReconcileInterval
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &PointReconciler{
		points:    points,
		interval:  interval,
		scheduler: scheduler,
		logger:    logger.With().Str("component", "point_reconciler").Logger(),
	}, nil
}

// Start schedules Reconcile every interval until Shutdown is called.
func (r *PointReconciler) Start(ctx context.Context) error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			if _, err := r.Reconcile(ctx); err != nil {
				r.logger.Error().Err(err).Msg("point reconciliation failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule point reconciliation: %w", err)
	}

	r.scheduler.Start()
	r.logger.Info().Dur("interval", r.interval).Msg("point reconciliation scheduled")
	return nil
}

// Shutdown stops the scheduler and waits for a running job.
func (r *PointReconciler) Shutdown() error {
	return r.scheduler.Shutdown()
}

// Reconcile corrects every summary whose total disagrees with the history and
// returns the number of corrections.
func (r *PointReconciler) Reconcile(ctx context.Context) (int, error) {
	drift, err := r.points.FindDrift(ctx)
	if err != nil {
		return 0, fmt.Errorf("find point drift: %w", err)
	}

	corrected := 0
	for _, entry := range drift {
		total, err := r.points.RecomputeTotal(ctx, entry.UserID)
		if err != nil {
			return corrected, fmt.Errorf("correct points for %s: %w", entry.UserID, err)
		}
		corrected++
		observability.PointDriftCorrections().Inc()
		r.logger.Warn().
			Str("user_id", entry.UserID.String()).
			Int("recorded", entry.Recorded).
			Int("computed", entry.Computed).
			Int("total", total).
			Msg("corrected point total drift")
	}
	return corrected, nil
}
