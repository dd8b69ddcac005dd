package scheduler

import (
	"sync"

	"github.com/ikkim/staycert-backend/internal/app/service"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// ExpiryChecker is the lifecycle operation the sweep drives.
type ExpiryChecker interface {
	CheckExpiryStatus(warningDays int) (*service.ExpiryReport, error)
}

// ExpiryScheduler runs the certification expiry sweep on a cron schedule.
type ExpiryScheduler struct {
	cron        *cron.Cron
	checker     ExpiryChecker
	spec        string
	warningDays int

	mu      sync.Mutex
	running bool
}

func NewExpiryScheduler(checker ExpiryChecker, spec string, warningDays int) *ExpiryScheduler {
	return &ExpiryScheduler{
		cron:        cron.New(),
		checker:     checker,
		spec:        spec,
		warningDays: warningDays,
	}
}

// Start registers the sweep and starts the cron runner.
func (s *ExpiryScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		logger.Error("Failed to add cron job for expiry sweep", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Expiry scheduler started", map[string]interface{}{
		"spec":         s.spec,
		"warning_days": s.warningDays,
	})
	return nil
}

// RunOnce executes one sweep. Overlapping runs are skipped.
func (s *ExpiryScheduler) RunOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Warn("Expiry sweep still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	report, err := s.checker.CheckExpiryStatus(s.warningDays)
	if err != nil {
		logger.Error("Scheduled expiry sweep failed", err)
		return
	}

	logger.Info("Scheduled expiry sweep finished", map[string]interface{}{
		"expired":       len(report.Expired),
		"expiring_soon": len(report.ExpiringSoon),
		"marked":        report.MarkedCount,
	})
}

// Stop waits for a running sweep to finish.
func (s *ExpiryScheduler) Stop() {
	logger.Info("Stopping expiry scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Expiry scheduler stopped")
}
