package sendreminder

import (
	"context"
	"errors"
	"strings"
	"time"

	"remindbot/internal/core/domain/attachment"
	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/logging"
	"remindbot/internal/core/domain/notification"
	"remindbot/internal/core/domain/reminder"
	uow "remindbot/internal/core/domain/unit_of_work"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/core/services"
	"remindbot/internal/core/services/attachments"
)

type Input struct {
	OwnerID    user.ID
	ReminderID reminder.ID
	// FireAt is the fire time seen by the scan. A reminder rescheduled in
	// the meantime is skipped.
	FireAt time.Time
}

type Result struct {
	Reminder     reminder.Reminder
	IsSent       bool
	IsAdvanced   bool
	Successor    reminder.Reminder
	HasSuccessor bool
}

type sendService struct {
	log             logging.Logger
	unitOfWork      uow.UnitOfWork
	notifier        notification.Notifier
	attachments     attachments.Manager
	deliveryTimeout time.Duration
	advanceService  services.Service[Input, Result]
}

func NewSendService(
	log logging.Logger,
	unitOfWork uow.UnitOfWork,
	notifier notification.Notifier,
	attachments attachments.Manager,
	deliveryTimeout time.Duration,
	advanceService services.Service[Input, Result],
) services.Service[Input, Result] {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if unitOfWork == nil {
		panic(e.NewNilArgumentError("unitOfWork"))
	}
	if notifier == nil {
		panic(e.NewNilArgumentError("notifier"))
	}
	if attachments == nil {
		panic(e.NewNilArgumentError("attachments"))
	}
	if advanceService == nil {
		panic(e.NewNilArgumentError("advanceService"))
	}
	return &sendService{
		log:             log,
		unitOfWork:      unitOfWork,
		notifier:        notifier,
		attachments:     attachments,
		deliveryTimeout: deliveryTimeout,
		advanceService:  advanceService,
	}
}

func (s *sendService) Run(ctx context.Context, input Input) (result Result, err error) {
	rem, files, err := s.read(ctx, input)
	if err != nil {
		if errors.Is(err, reminder.ErrReminderDoesNotExist) {
			s.log.Info(ctx, "Reminder has been deleted, skip sending.", logging.Entry("input", input))
			return result, nil
		}
		logging.Error(ctx, s.log, err, logging.Entry("input", input))
		return result, err
	}
	result.Reminder = rem
	if rem.IsDone || !rem.FireAt.Equal(input.FireAt) {
		s.log.Info(
			ctx,
			"Reminder has been changed since the scan, skip sending.",
			logging.Entry("input", input),
			logging.Entry("isDone", rem.IsDone),
			logging.Entry("fireAt", rem.FireAt),
		)
		return result, nil
	}

	if err := s.send(ctx, rem.OwnerID, formatMessage(rem, files)); err != nil {
		s.log.Warning(
			ctx,
			"Could not deliver reminder, it will be retried.",
			logging.Entry("input", input),
			logging.Entry("err", err),
		)
		return result, err
	}
	result.IsSent = true
	s.log.Info(ctx, "Reminder has been successfully sent.", logging.Entry("input", input))

	for _, att := range files {
		s.sendAttachment(ctx, att)
	}

	advanced, err := s.advanceService.Run(ctx, input)
	if err != nil {
		return result, err
	}
	advanced.IsSent = true
	return advanced, nil
}

func (s *sendService) read(
	ctx context.Context,
	input Input,
) (rem reminder.Reminder, files []attachment.Attachment, err error) {
	tx, err := s.unitOfWork.Begin(ctx)
	if err != nil {
		return rem, files, err
	}
	defer tx.Rollback(ctx)

	rem, err = tx.Reminders().GetByID(ctx, input.OwnerID, input.ReminderID)
	if err != nil {
		return rem, files, err
	}
	if rem.HasAttachments {
		files, err = tx.Attachments().Read(ctx, input.OwnerID, input.ReminderID)
		if err != nil {
			return rem, files, err
		}
	}
	return rem, files, nil
}

func (s *sendService) send(ctx context.Context, ownerID user.ID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()
	return s.notifier.SendText(ctx, ownerID, text)
}

// sendAttachment reports a failure inline, the rest of the attachments are
// still delivered.
func (s *sendService) sendAttachment(ctx context.Context, att attachment.Attachment) {
	content, err := s.attachments.Download(ctx, att)
	if err == nil {
		sendCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
		err = s.notifier.SendDocument(sendCtx, att.OwnerID, notification.Document{Name: att.Name, Content: content})
		cancel()
	}
	if err == nil {
		return
	}

	s.log.Warning(
		ctx,
		"Could not deliver attachment.",
		logging.Entry("ownerID", att.OwnerID),
		logging.Entry("attachmentID", att.ID),
		logging.Entry("err", err),
	)
	if err := s.send(ctx, att.OwnerID, "Could not deliver attachment "+att.Name+"."); err != nil {
		s.log.Warning(ctx, "Could not report attachment failure.", logging.Entry("ownerID", att.OwnerID), logging.Entry("err", err))
	}
}

func formatMessage(rem reminder.Reminder, files []attachment.Attachment) string {
	var b strings.Builder
	b.WriteString("Reminder: ")
	b.WriteString(rem.Description)
	if len(files) > 0 {
		b.WriteString("\nAttachments:")
		for _, att := range files {
			b.WriteString("\n")
			b.WriteString(att.Name)
		}
	}
	return b.String()
}
