package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/safevoice/incident-intake/internal/config"
	"github.com/safevoice/incident-intake/internal/reports"
)

// Service handles scheduling of the intake digest
type Service struct {
	config  *config.Config
	reports *reports.Service
	cron    *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, reportsService *reports.Service) *Service {
	return &Service{
		config:  cfg,
		reports: reportsService,
		cron:    cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled digest
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.DigestSchedule {
	case "daily":
		// Run daily at 7 AM UTC
		cronExpression = "0 0 7 * * *"
	case "weekly":
		// Run weekly on Monday at 7 AM UTC
		cronExpression = "0 0 7 * * MON"
	default:
		cronExpression = "0 0 7 * * *"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled intake digest")
		if err := s.reports.RunDigest(); err != nil {
			logrus.Errorf("Intake digest failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s digest schedule", s.config.DigestSchedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
