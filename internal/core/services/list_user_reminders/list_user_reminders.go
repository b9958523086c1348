package listuserreminders

import (
	"context"

	"remindbot/internal/core/domain/attachment"
	c "remindbot/internal/core/domain/common"
	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/logging"
	"remindbot/internal/core/domain/reminder"
	uow "remindbot/internal/core/domain/unit_of_work"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/core/services"
)

const DEFAULT_LIMIT = 100

type Input struct {
	OwnerID user.ID
	IsDone  bool
	Limit   c.Optional[uint]
}

type ReminderWithAttachments struct {
	Reminder    reminder.Reminder
	Attachments []attachment.Attachment
}

type Result struct {
	Reminders []ReminderWithAttachments
}

type service struct {
	log        logging.Logger
	unitOfWork uow.UnitOfWork
}

// New lists active reminders by fire time, soonest first, and completed
// ones by fire time, latest first.
func New(
	log logging.Logger,
	unitOfWork uow.UnitOfWork,
) services.Service[Input, Result] {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if unitOfWork == nil {
		panic(e.NewNilArgumentError("unitOfWork"))
	}
	return &service{
		log:        log,
		unitOfWork: unitOfWork,
	}
}

func (s *service) Run(ctx context.Context, input Input) (result Result, err error) {
	tx, err := s.unitOfWork.Begin(ctx)
	if err != nil {
		logging.Error(ctx, s.log, err, logging.Entry("input", input))
		return result, err
	}
	defer tx.Rollback(ctx)

	limit := c.NewOptional[uint](DEFAULT_LIMIT, true)
	if input.Limit.IsPresent {
		limit.Value = input.Limit.Value
	}
	orderBy := reminder.OrderByFireAtAsc
	if input.IsDone {
		orderBy = reminder.OrderByFireAtDesc
	}

	reminders, err := tx.Reminders().Read(ctx, reminder.ReadOptions{
		OwnerID: input.OwnerID,
		IsDone:  c.NewOptional(input.IsDone, true),
		OrderBy: orderBy,
		Limit:   limit,
	})
	if err != nil {
		logging.Error(ctx, s.log, err, logging.Entry("input", input))
		return result, err
	}

	result.Reminders = make([]ReminderWithAttachments, 0, len(reminders))
	for _, rem := range reminders {
		item := ReminderWithAttachments{Reminder: rem}
		if rem.HasAttachments {
			item.Attachments, err = tx.Attachments().Read(ctx, input.OwnerID, rem.ID)
			if err != nil {
				logging.Error(ctx, s.log, err, logging.Entry("input", input), logging.Entry("reminderID", rem.ID))
				return result, err
			}
		}
		result.Reminders = append(result.Reminders, item)
	}

	s.log.Info(
		ctx,
		"User reminders successfully read.",
		logging.Entry("input", input),
		logging.Entry("count", len(result.Reminders)),
	)
	return result, nil
}
