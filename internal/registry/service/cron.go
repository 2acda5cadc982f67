package service

import (
	"context"

	"github.com/robfig/cron/v3"
)

// StartAuthTokenPruner schedules a periodic sweep that deletes expired
// login sessions — state tokens from Login that were never completed by
// Authorize, plus any session old enough that a client polling Whoami has
// long since given up. Returns the cron.Cron so the caller can Stop it on
// shutdown.
func (s *Service) StartAuthTokenPruner(spec string) *cron.Cron {
	if spec == "" {
		spec = "@every 5m"
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := s.store.PruneExpiredAuthTokens(context.Background())
		if err != nil {
			s.log.WithField("error", err).Error("pruning expired auth tokens")
			return
		}
		if n > 0 {
			s.log.WithField("count", n).Info("pruned expired auth tokens")
		}
	})
	if err != nil {
		s.log.WithField("error", err).Error("scheduling auth token pruner")
		return c
	}
	c.Start()
	return c
}
