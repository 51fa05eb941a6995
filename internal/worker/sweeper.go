package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// OverdueExpirer finalizes sessions that are past their deadline.
type OverdueExpirer interface {
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

// DeadlineSweeper is the backstop for lazy expiry: it periodically finalizes
// overdue sessions whose clients never came back. Expiry on read handles the
// common case; the sweeper bounds how stale an abandoned-in-place session can
// get.
type DeadlineSweeper struct {
	expirer   OverdueExpirer
	interval  time.Duration
	batchSize int
	log       zerolog.Logger
}

// NewDeadlineSweeper creates a new DeadlineSweeper.
func NewDeadlineSweeper(expirer OverdueExpirer, interval time.Duration, batchSize int, log zerolog.Logger) *DeadlineSweeper {
	return &DeadlineSweeper{
		expirer:   expirer,
		interval:  interval,
		batchSize: batchSize,
		log:       log.With().Str("component", "deadline_sweeper").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *DeadlineSweeper) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("DeadlineSweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("DeadlineSweeper stopping")
			return
		case <-ticker.C:
			n, err := s.expirer.ExpireOverdue(ctx, s.batchSize)
			if err != nil {
				s.log.Error().Err(err).Msg("Sweep failed")
				continue
			}
			if n > 0 {
				s.log.Info().Int("finalized", n).Msg("Swept overdue sessions")
			}
		}
	}
}
