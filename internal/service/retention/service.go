package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/store"
)

// Service is the retention sweep: a periodic job that physically removes
// soft-deleted messages past the purge threshold and, separately, any
// message older than the retention window. It never touches a record
// younger than its threshold.
type Service struct {
	store  store.MessageStore
	log    *zerolog.Logger
	period time.Duration

	// purgeAfter is how long a soft-deleted message survives before the
	// sweep removes it. retainFor bounds the age of live messages.
	purgeAfter time.Duration
	retainFor  time.Duration
}

// New creates a retention service. Zero durations disable the
// corresponding purge.
func New(st store.MessageStore, logger *zerolog.Logger, period, purgeAfter, retainFor time.Duration) *Service {
	if period <= 0 {
		period = 24 * time.Hour
	}
	return &Service{
		store:      st,
		log:        logger,
		period:     period,
		purgeAfter: purgeAfter,
		retainFor:  retainFor,
	}
}

// Run sweeps on the configured period until the context is canceled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one retention pass and reports totals. Errors are logged,
// not returned; the next tick retries.
func (s *Service) Sweep(ctx context.Context) (purged, expired int64) {
	now := time.Now().UTC()

	if s.purgeAfter > 0 {
		n, err := s.store.PurgeDeletedBefore(ctx, now.Add(-s.purgeAfter))
		if err != nil {
			s.log.Error().Err(err).Msg("purge of soft-deleted messages failed")
		} else {
			purged = n
		}
	}

	if s.retainFor > 0 {
		n, err := s.store.PurgeCreatedBefore(ctx, now.Add(-s.retainFor))
		if err != nil {
			s.log.Error().Err(err).Msg("purge of expired messages failed")
		} else {
			expired = n
		}
	}

	if purged > 0 || expired > 0 {
		s.log.Info().Int64("purged_deleted", purged).Int64("purged_expired", expired).Msg("retention sweep completed")
	}
	return purged, expired
}
