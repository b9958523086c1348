package sendreminder

import (
	"context"
	"errors"
	"time"

	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/logging"
	"remindbot/internal/core/domain/reminder"
	uow "remindbot/internal/core/domain/unit_of_work"
	"remindbot/internal/core/services"
	"remindbot/internal/core/services/attachments"
)

type advanceService struct {
	log         logging.Logger
	unitOfWork  uow.UnitOfWork
	attachments attachments.Manager
	location    *time.Location
	now         func() time.Time
}

// NewAdvanceService marks a delivered reminder as done. A recurring reminder
// gets a successor on the next free point of its grid, carrying copies of
// the attachment rows. Everything happens in one transaction.
func NewAdvanceService(
	log logging.Logger,
	unitOfWork uow.UnitOfWork,
	attachments attachments.Manager,
	location *time.Location,
	now func() time.Time,
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
	if location == nil {
		panic(e.NewNilArgumentError("location"))
	}
	if now == nil {
		panic(e.NewNilArgumentError("now"))
	}
	return &advanceService{
		log:         log,
		unitOfWork:  unitOfWork,
		attachments: attachments,
		location:    location,
		now:         now,
	}
}

func (s *advanceService) Run(ctx context.Context, input Input) (result Result, err error) {
	tx, err := s.unitOfWork.Begin(ctx)
	if err != nil {
		logging.Error(ctx, s.log, err, logging.Entry("input", input))
		return result, err
	}
	defer tx.Rollback(ctx)

	if err := tx.Reminders().Lock(ctx, input.OwnerID); err != nil {
		logging.Error(ctx, s.log, err, logging.Entry("input", input))
		return result, err
	}
	rem, err := tx.Reminders().GetByID(ctx, input.OwnerID, input.ReminderID)
	if err != nil {
		if errors.Is(err, reminder.ErrReminderDoesNotExist) {
			s.log.Info(ctx, "Reminder has been deleted during delivery.", logging.Entry("input", input))
			return result, nil
		}
		logging.Error(ctx, s.log, err, logging.Entry("input", input))
		return result, err
	}
	result.Reminder = rem
	if rem.IsDone || !rem.FireAt.Equal(input.FireAt) {
		s.log.Info(ctx, "Reminder has been changed during delivery, skip advancing.", logging.Entry("input", input))
		return result, nil
	}

	if rem.IsRecurring() {
		next := rem.Every.Value.NextAfter(rem.FireAt.In(s.location), s.now())
		successor, err := tx.Reminders().Create(ctx, reminder.CreateInput{
			OwnerID:        rem.OwnerID,
			Description:    rem.Description,
			FireAt:         next,
			Every:          rem.Every,
			HasAttachments: rem.HasAttachments,
			CreatedAt:      s.now(),
		})
		if err != nil {
			logging.Error(ctx, s.log, err, logging.Entry("input", input))
			return result, err
		}
		if rem.HasAttachments {
			if _, err := s.attachments.Duplicate(ctx, tx, rem.OwnerID, rem.ID, successor.ID); err != nil {
				logging.Error(ctx, s.log, err, logging.Entry("input", input), logging.Entry("successorID", successor.ID))
				return result, err
			}
		}
		result.Successor = successor
		result.HasSuccessor = true
	}

	rem, err = tx.Reminders().Update(ctx, reminder.UpdateInput{
		OwnerID:        rem.OwnerID,
		ID:             rem.ID,
		DoIsDoneUpdate: true,
		IsDone:         true,
	})
	if err != nil {
		logging.Error(ctx, s.log, err, logging.Entry("input", input))
		return result, err
	}
	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, s.log, err, logging.Entry("input", input))
		return result, err
	}

	result.Reminder = rem
	result.IsAdvanced = true
	if result.HasSuccessor {
		s.log.Info(
			ctx,
			"Reminder has been advanced to the next occurrence.",
			logging.Entry("input", input),
			logging.Entry("successorID", result.Successor.ID),
			logging.Entry("fireAt", result.Successor.FireAt),
		)
	} else {
		s.log.Info(ctx, "Reminder has been completed.", logging.Entry("input", input))
	}
	return result, nil
}
