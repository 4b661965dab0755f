package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CycleRunner is one reconciliation pass over every tracked course pair.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// PollScheduler drives the reconciliation loop on a fixed wall-clock
// interval. Cycles run synchronously on the ticker goroutine, so a slow cycle
// can never overlap the next one; it is bounded by the per-cycle timeout
// instead. Stop cancels the loop and waits for any in-flight cycle.
type PollScheduler struct {
	runner       CycleRunner
	interval     time.Duration
	cycleTimeout time.Duration
	logger       *logrus.Logger
	cancel       context.CancelFunc
	done         chan struct{}
}

func NewPollScheduler(runner CycleRunner, interval, cycleTimeout time.Duration, logger *logrus.Logger) *PollScheduler {
	return &PollScheduler{
		runner:       runner,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

func (s *PollScheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.logger.Infof("Starting reconciliation loop with interval %s.", s.interval)
	go s.loop(ctx)
}

func (s *PollScheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation loop cancelled.")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *PollScheduler) runOnce(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	started := time.Now()
	if err := s.runner.RunCycle(cycleCtx); err != nil {
		s.logger.Errorf("Reconciliation cycle failed: %v", err)
		return
	}
	s.logger.Debugf("Reconciliation cycle completed in %s.", time.Since(started))
}

// Stop cancels the loop and blocks until the current cycle has finished or
// was abandoned at its timeout.
func (s *PollScheduler) Stop() {
	s.logger.Info("Stopping reconciliation loop...")
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
	s.logger.Info("Reconciliation loop stopped.")
}

// BaselinePruner removes baselines no sentinel watch references anymore.
type BaselinePruner interface {
	PruneOrphans(ctx context.Context) (int64, error)
}

// MaintenanceScheduler runs the calendar-scheduled housekeeping jobs.
type MaintenanceScheduler struct {
	cronEngine *cron.Cron
	pruner     BaselinePruner
	logger     *logrus.Logger
	cronSpec   string
}

func NewMaintenanceScheduler(pruner BaselinePruner, cronSpec string, logger *logrus.Logger) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)),
		pruner:     pruner,
		logger:     logger,
		cronSpec:   cronSpec,
	}
}

func (s *MaintenanceScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for baseline maintenance.")
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		pruned, err := s.pruner.PruneOrphans(ctx)
		if err != nil {
			s.logger.Errorf("Error during baseline maintenance: %v", err)
			return
		}
		s.logger.Infof("Baseline maintenance pruned %d orphaned baselines.", pruned)
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Info("Maintenance scheduler started.")
	return nil
}

func (s *MaintenanceScheduler) Stop() {
	s.logger.Info("Stopping maintenance scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Maintenance scheduler gracefully stopped.")
}
