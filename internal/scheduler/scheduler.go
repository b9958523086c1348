package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/logging"
	"remindbot/internal/core/services"
	scanreminders "remindbot/internal/core/services/scan_reminders"
	cronlogging "remindbot/internal/implementations/logging"
)

// Scheduler triggers a reminders scan every period. A tick that comes while
// the previous scan is still running is skipped.
type Scheduler struct {
	log  logging.Logger
	cron *cron.Cron
	scan services.Service[scanreminders.Input, scanreminders.Result]
}

func New(
	log logging.Logger,
	scan services.Service[scanreminders.Input, scanreminders.Result],
	period time.Duration,
) (*Scheduler, error) {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if scan == nil {
		panic(e.NewNilArgumentError("scan"))
	}
	if period < time.Second {
		return nil, fmt.Errorf("scan period must be at least one second, got %s", period)
	}

	cronLogger := cronlogging.NewCronLogger(log)
	s := &Scheduler{
		log: log,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		scan: scan,
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", period), s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.log.Info(context.Background(), "Starting reminders scheduler.", logging.Entry("entries", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop prevents new ticks and waits for the running scan, if any, until ctx
// is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.log.Info(ctx, "Stopping reminders scheduler.")
	select {
	case <-s.cron.Stop().Done():
		s.log.Info(ctx, "Reminders scheduler stopped.")
	case <-ctx.Done():
		s.log.Warning(ctx, "Reminders scheduler did not stop in time.")
	}
}

// tick runs one scan. The scan reports its own summary.
func (s *Scheduler) tick() {
	ctx := context.Background()
	_, err := s.scan.Run(ctx, scanreminders.Input{})
	if errors.Is(err, scanreminders.ErrScanInProgress) {
		return
	}
	if err != nil {
		logging.Error(ctx, s.log, err)
	}
}
