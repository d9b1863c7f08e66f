package scheduler

import (
	"time"

	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// staleClaimAge is how long an unverified claim is kept before cleanup.
// Codes expire after minutes; the rows stick around a bit longer so users
// can still see why their claim failed.
const staleClaimAge = 24 * time.Hour

// ClaimScheduler periodically purges unverified claim requests. Verified
// claims are kept as the ownership audit trail.
type ClaimScheduler struct {
	cron      *cron.Cron
	claimRepo repository.ClaimRepository
}

func NewClaimScheduler(claimRepo repository.ClaimRepository) *ClaimScheduler {
	return &ClaimScheduler{
		cron:      cron.New(),
		claimRepo: claimRepo,
	}
}

func (s *ClaimScheduler) Start() error {
	_, err := s.cron.AddFunc("@hourly", func() {
		cutoff := time.Now().Add(-staleClaimAge)

		deleted, err := s.claimRepo.DeleteStaleUnverified(cutoff)
		if err != nil {
			logger.Error("Failed to purge stale claim requests", err)
			return
		}

		if deleted > 0 {
			logger.Info("Purged stale claim requests", map[string]interface{}{
				"deleted": deleted,
				"cutoff":  cutoff,
			})
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for claim cleanup", err)
		return err
	}

	s.cron.Start()
	logger.Info("Claim cleanup scheduler started (hourly)", nil)
	return nil
}

func (s *ClaimScheduler) Stop() {
	s.cron.Stop()
	logger.Info("Claim cleanup scheduler stopped", nil)
}
