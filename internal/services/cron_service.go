package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/tidyhome/booking-backend/internal/quotestore"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron     *cron.Cron
	quotes   quotestore.Store
	schedule string
	logger   *logrus.Logger
	now      func() time.Time
}

// NewCronService creates a new CronService. The schedule uses standard
// five-field cron syntax or descriptors such as "@every 5m".
func NewCronService(quotes quotestore.Store, schedule string, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:     cron.New(),
		quotes:   quotes,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweepExpiredQuotesJob); err != nil {
		return fmt.Errorf("failed to schedule quote sweep job: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("Scheduled: sweep expired quotes")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// sweepExpiredQuotesJob removes quotes whose TTL has elapsed. Reads already
// treat expired quotes as absent, so this only bounds storage growth.
func (s *CronService) sweepExpiredQuotesJob() {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.quotes.Sweep(ctx, s.now())
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to sweep expired quotes")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"removed":  removed,
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] Expired quotes swept")
}
