package scheduler

import (
	"time"

	"github.com/ikkim/sneakers-backend/internal/app/service"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// SessionCleanupScheduler periodically purges carts and favorites of
// anonymous sessions that went idle.
type SessionCleanupScheduler struct {
	cron           *cron.Cron
	cleanupService service.SessionCleanupService
	schedule       string
	now            func() time.Time
}

func NewSessionCleanupScheduler(cleanupService service.SessionCleanupService, schedule string) *SessionCleanupScheduler {
	return &SessionCleanupScheduler{
		cron:           cron.New(),
		cleanupService: cleanupService,
		schedule:       schedule,
		now:            time.Now,
	}
}

// Start registers the job and starts the cron runner. An invalid schedule
// is reported without starting anything.
func (s *SessionCleanupScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runOnce); err != nil {
		logger.Error("Failed to add cron job for session cleanup", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Session cleanup scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

func (s *SessionCleanupScheduler) runOnce() {
	logger.Info("Starting scheduled session cleanup")

	result, err := s.cleanupService.PurgeIdleSessions(s.now())
	if err != nil {
		logger.Error("Scheduled session cleanup failed", err)
		return
	}

	logger.Info("Scheduled session cleanup finished", map[string]interface{}{
		"carts_deleted":     result.CartsDeleted,
		"favorites_deleted": result.FavoritesDeleted,
		"sessions_expired":  result.SessionsExpired,
	})
}

// Stop waits for a running job to finish.
func (s *SessionCleanupScheduler) Stop() {
	logger.Info("Stopping session cleanup scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Session cleanup scheduler stopped")
}
