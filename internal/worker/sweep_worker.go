package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/opexam/opexam-backend/internal/service"
)

// SweepWorker periodically finalizes sessions that lost their engine to a
// process restart: once the deadline passes, their recovery replica is
// scored and persisted so no attempt is ever silently lost.
type SweepWorker struct {
	sessions *service.SessionService
	interval time.Duration
	log      zerolog.Logger
}

// NewSweepWorker creates a new SweepWorker.
func NewSweepWorker(sessions *service.SessionService, interval time.Duration, log zerolog.Logger) *SweepWorker {
	return &SweepWorker{
		sessions: sessions,
		interval: interval,
		log:      log.With().Str("component", "sweep_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *SweepWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			swept, err := w.sessions.SweepOrphans(ctx)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Error().Err(err).Msg("Sweep failed")
				}
				continue
			}
			if swept > 0 {
				w.log.Info().Int("count", swept).Msg("Orphaned sessions finalized")
			}
		}
	}
}
