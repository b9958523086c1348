package deletereminder

import (
	"context"
	"errors"

	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/logging"
	"remindbot/internal/core/domain/reminder"
	uow "remindbot/internal/core/domain/unit_of_work"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/core/services"
	"remindbot/internal/core/services/attachments"
)

type Input struct {
	OwnerID    user.ID
	ReminderID reminder.ID
}

type Result struct {
	Reminder reminder.Reminder
}

type service struct {
	log         logging.Logger
	unitOfWork  uow.UnitOfWork
	attachments attachments.Manager
}

func New(
	log logging.Logger,
	unitOfWork uow.UnitOfWork,
	attachments attachments.Manager,
) services.Service[Input, Result] {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if unitOfWork == nil {
		panic(e.NewNilArgumentError("unitOfWork"))
	}
	if attachments == nil {
		panic(e.NewNilArgumentError("attachments"))
	}
	return &service{
		log:         log,
		unitOfWork:  unitOfWork,
		attachments: attachments,
	}
}

// Run removes the reminder with its attachment rows in one transaction.
// Blobs nobody references anymore are deleted after the commit.
func (s *service) Run(ctx context.Context, input Input) (result Result, err error) {
	tx, err := s.unitOfWork.Begin(ctx)
	if err != nil {
		logging.Error(ctx, s.log, err, logging.Entry("input", input))
		return result, err
	}
	defer tx.Rollback(ctx)

	reminderRepository := tx.Reminders()
	if err := reminderRepository.Lock(ctx, input.OwnerID); err != nil {
		logging.Error(ctx, s.log, err, logging.Entry("input", input))
		return result, err
	}
	rem, err := reminderRepository.GetByID(ctx, input.OwnerID, input.ReminderID)
	if err != nil {
		switch {
		case errors.Is(err, reminder.ErrReminderDoesNotExist):
			s.log.Info(ctx, "Reminder not found.", logging.Entry("input", input))
		default:
			logging.Error(ctx, s.log, err, logging.Entry("input", input))
		}
		return result, err
	}

	orphaned, err := s.attachments.Detach(ctx, tx, input.OwnerID, rem.ID)
	if err != nil {
		return result, err
	}
	err = reminderRepository.Delete(ctx, input.OwnerID, rem.ID)
	if err != nil {
		switch {
		case errors.Is(err, reminder.ErrReminderDoesNotExist):
			// do nothing
		default:
			logging.Error(ctx, s.log, err, logging.Entry("input", input))
		}
		return result, err
	}

	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, s.log, err, logging.Entry("input", input))
		return result, err
	}
	s.attachments.PurgeBlobs(ctx, input.OwnerID, orphaned)

	s.log.Info(
		ctx,
		"Reminder has been successfully deleted.",
		logging.Entry("input", input),
		logging.Entry("orphanedBlobs", len(orphaned)),
	)
	result.Reminder = rem
	return result, nil
}
