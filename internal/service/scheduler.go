package service

import (
	"context"
	"fmt"
	"time"

	"stock-fundamentals/config"
	"stock-fundamentals/internal/repository"
	"stock-fundamentals/pkg/logger"

	"github.com/robfig/cron/v3"
)

const sessionLogRetention = 30 * 24 * time.Hour

// SchedulerService runs the sync pipeline on a cron schedule and prunes old
// session log rows once a day. Runs never overlap: the cron library delays a
// firing until the previous run returns.
type SchedulerService interface {
	Start(ctx context.Context, tickers []string, opts SyncOptions) error
	Stop() context.Context
}

type schedulerService struct {
	cfg  *config.Config
	log  *logger.Logger
	sync *SyncService
	repo *repository.Repository
	cron *cron.Cron
}

func NewSchedulerService(cfg *config.Config, log *logger.Logger, syncService *SyncService, repo *repository.Repository) *schedulerService {
	return &schedulerService{
		cfg:  cfg,
		log:  log,
		sync: syncService,
		repo: repo,
		cron: cron.New(cron.WithChain(cron.DelayIfStillRunning(cron.DefaultLogger))),
	}
}

// Start registers the sync and maintenance jobs and launches the cron loop in
// the background.
func (s *schedulerService) Start(ctx context.Context, tickers []string, opts SyncOptions) error {
	spec := s.cfg.Scheduler.CronSpec
	if spec == "" {
		return fmt.Errorf("no cron schedule configured")
	}

	_, err := s.cron.AddFunc(spec, func() {
		summary, err := s.sync.Run(ctx, tickers, opts)
		if err != nil {
			s.log.Error("Scheduled sync failed", logger.ErrorField(err))
			return
		}
		s.log.Info("Scheduled sync finished",
			logger.StringField("session_id", summary.SessionID),
			logger.IntField("fetched", len(summary.Fetch.Successful)),
			logger.IntField("failed", len(summary.FailedTickers)),
		)
	})
	if err != nil {
		return fmt.Errorf("register sync job: %w", err)
	}

	_, err = s.cron.AddFunc("30 0 * * *", func() {
		removed, err := s.repo.SessionLogRepo.DeleteOlderThan(ctx, time.Now().Add(-sessionLogRetention))
		if err != nil {
			s.log.Error("Session log pruning failed", logger.ErrorField(err))
			return
		}
		s.log.Info("Session logs pruned", logger.IntField("removed", int(removed)))
	})
	if err != nil {
		return fmt.Errorf("register maintenance job: %w", err)
	}

	s.cron.Start()
	s.log.Info("Scheduler started",
		logger.StringField("schedule", spec),
		logger.IntField("tickers", len(tickers)),
	)
	return nil
}

// Stop halts scheduling; the returned context is done once in-flight jobs
// finish.
func (s *schedulerService) Stop() context.Context {
	s.log.Info("Scheduler stopping")
	return s.cron.Stop()
}
