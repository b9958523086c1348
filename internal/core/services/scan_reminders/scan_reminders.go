package scanreminders

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	c "remindbot/internal/core/domain/common"
	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/logging"
	"remindbot/internal/core/domain/reminder"
	uow "remindbot/internal/core/domain/unit_of_work"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/core/services"
	sendreminder "remindbot/internal/core/services/send_reminder"
)

var ErrScanInProgress = errors.New("reminders scan is already in progress")

type Input struct{}

type Result struct {
	Owners   int
	Sent     int
	Failed   int
	Advanced int
}

type service struct {
	log         logging.Logger
	unitOfWork  uow.UnitOfWork
	sendService services.Service[sendreminder.Input, sendreminder.Result]
	workers     int
	now         func() time.Time
	running     sync.Mutex
}

func New(
	log logging.Logger,
	unitOfWork uow.UnitOfWork,
	sendService services.Service[sendreminder.Input, sendreminder.Result],
	workers int,
	now func() time.Time,
) services.Service[Input, Result] {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if unitOfWork == nil {
		panic(e.NewNilArgumentError("unitOfWork"))
	}
	if sendService == nil {
		panic(e.NewNilArgumentError("sendService"))
	}
	if now == nil {
		panic(e.NewNilArgumentError("now"))
	}
	if workers < 1 {
		workers = 1
	}
	return &service{
		log:         log,
		unitOfWork:  unitOfWork,
		sendService: sendService,
		workers:     workers,
		now:         now,
	}
}

func (s *service) Run(ctx context.Context, input Input) (result Result, err error) {
	if !s.running.TryLock() {
		s.log.Warning(ctx, "Previous scan is still running, skip the tick.")
		return result, ErrScanInProgress
	}
	defer s.running.Unlock()

	now := s.now()
	owners, err := s.readDueOwners(ctx, now)
	if err != nil {
		logging.Error(ctx, s.log, err)
		return result, err
	}
	result.Owners = len(owners)
	if len(owners) == 0 {
		return result, nil
	}

	var sent, failed, advanced atomic.Int64
	group := errgroup.Group{}
	group.SetLimit(s.workers)
	for _, ownerID := range owners {
		ownerID := ownerID
		group.Go(func() error {
			ownerResult := s.scanOwner(ctx, ownerID, now)
			sent.Add(int64(ownerResult.Sent))
			failed.Add(int64(ownerResult.Failed))
			advanced.Add(int64(ownerResult.Advanced))
			return nil
		})
	}
	group.Wait()

	result.Sent = int(sent.Load())
	result.Failed = int(failed.Load())
	result.Advanced = int(advanced.Load())
	s.log.Info(
		ctx,
		"Reminders scan has been finished.",
		logging.Entry("owners", result.Owners),
		logging.Entry("sent", result.Sent),
		logging.Entry("failed", result.Failed),
		logging.Entry("advanced", result.Advanced),
	)
	return result, nil
}

func (s *service) readDueOwners(ctx context.Context, now time.Time) ([]user.ID, error) {
	tx, err := s.unitOfWork.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	return tx.Reminders().ReadDueOwners(ctx, now)
}

// scanOwner delivers the owner's due reminders in fire time order. The due
// list is read once, successors created on the way wait for the next tick.
func (s *service) scanOwner(ctx context.Context, ownerID user.ID, now time.Time) (result Result) {
	due, err := s.readDue(ctx, ownerID, now)
	if err != nil {
		logging.Error(ctx, s.log, err, logging.Entry("ownerID", ownerID))
		result.Failed++
		return result
	}

	for _, rem := range due {
		if ctx.Err() != nil {
			return result
		}
		sendResult, err := s.sendService.Run(ctx, sendreminder.Input{
			OwnerID:    ownerID,
			ReminderID: rem.ID,
			FireAt:     rem.FireAt,
		})
		if err != nil {
			result.Failed++
		}
		if sendResult.IsSent {
			result.Sent++
		}
		if sendResult.IsAdvanced {
			result.Advanced++
		}
	}
	return result
}

func (s *service) readDue(ctx context.Context, ownerID user.ID, now time.Time) ([]reminder.Reminder, error) {
	tx, err := s.unitOfWork.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	return tx.Reminders().Read(ctx, reminder.ReadOptions{
		OwnerID:      ownerID,
		IsDone:       c.NewOptional(false, true),
		FireAtBefore: c.NewOptional(now, true),
		OrderBy:      reminder.OrderByFireAtAsc,
	})
}
