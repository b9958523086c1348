package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"remindbot/internal/core/domain/attachment"
	c "remindbot/internal/core/domain/common"
	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/logging"
	"remindbot/internal/core/domain/notification"
	"remindbot/internal/core/domain/reminder"
	"remindbot/internal/core/domain/session"
	uow "remindbot/internal/core/domain/unit_of_work"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/core/services/attachments"
)

// Machine drives the multi-step dialogs. Every inbound event is handled
// against the owner's persisted session and answered with exactly one
// message.
type Machine interface {
	StartCreate(ctx context.Context, ownerID user.ID) error
	StartEditDescription(ctx context.Context, ownerID user.ID, id reminder.ID) error
	StartEditDate(ctx context.Context, ownerID user.ID, id reminder.ID) error
	StartEditInterval(ctx context.Context, ownerID user.ID, id reminder.ID) error
	StartReturn(ctx context.Context, ownerID user.ID, id reminder.ID) error
	StartAddAttachments(ctx context.Context, ownerID user.ID, id reminder.ID) error

	HandleText(ctx context.Context, ownerID user.ID, text string) error
	HandleDate(ctx context.Context, ownerID user.ID, date session.Date) error
	HandleChoice(ctx context.Context, ownerID user.ID, choice Choice) error
	HandleFile(ctx context.Context, ownerID user.ID, file attachment.File) error

	State(ctx context.Context, ownerID user.ID) (session.State, error)
	Reset(ctx context.Context, ownerID user.ID) error
}

type machine struct {
	log         logging.Logger
	unitOfWork  uow.UnitOfWork
	sessions    session.Repository
	notifier    notification.Notifier
	attachments attachments.Manager
	location    *time.Location
	now         func() time.Time
	locks       *keyedMutex
}

func New(
	log logging.Logger,
	unitOfWork uow.UnitOfWork,
	sessions session.Repository,
	notifier notification.Notifier,
	attachments attachments.Manager,
	location *time.Location,
	now func() time.Time,
) Machine {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if unitOfWork == nil {
		panic(e.NewNilArgumentError("unitOfWork"))
	}
	if sessions == nil {
		panic(e.NewNilArgumentError("sessions"))
	}
	if notifier == nil {
		panic(e.NewNilArgumentError("notifier"))
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
	return &machine{
		log:         log,
		unitOfWork:  unitOfWork,
		sessions:    sessions,
		notifier:    notifier,
		attachments: attachments,
		location:    location,
		now:         now,
		locks:       newKeyedMutex(),
	}
}

func (m *machine) StartCreate(ctx context.Context, ownerID user.ID) error {
	unlock := m.locks.Lock(ownerID)
	defer unlock()

	s := session.New(ownerID, session.FlowCreate, session.StateAwaitingDescription, m.now())
	return m.enter(ctx, s, "")
}

func (m *machine) StartEditDescription(ctx context.Context, ownerID user.ID, id reminder.ID) error {
	return m.startEdit(ctx, ownerID, id, session.FlowEditDescription, session.StateAwaitingDescription)
}

func (m *machine) StartEditDate(ctx context.Context, ownerID user.ID, id reminder.ID) error {
	return m.startEdit(ctx, ownerID, id, session.FlowEditDate, session.StateAwaitingDate)
}

func (m *machine) StartEditInterval(ctx context.Context, ownerID user.ID, id reminder.ID) error {
	return m.startEdit(ctx, ownerID, id, session.FlowEditInterval, session.StateAwaitingPeriodicInterval)
}

func (m *machine) StartReturn(ctx context.Context, ownerID user.ID, id reminder.ID) error {
	return m.startEdit(ctx, ownerID, id, session.FlowReturn, session.StateAwaitingDate)
}

func (m *machine) StartAddAttachments(ctx context.Context, ownerID user.ID, id reminder.ID) error {
	return m.startEdit(ctx, ownerID, id, session.FlowAddAttachments, session.StateAwaitingAttachmentUpload)
}

func (m *machine) startEdit(
	ctx context.Context,
	ownerID user.ID,
	id reminder.ID,
	flow session.Flow,
	state session.State,
) error {
	unlock := m.locks.Lock(ownerID)
	defer unlock()

	rem, err := m.getReminder(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, reminder.ErrReminderDoesNotExist) {
			m.log.Info(ctx, "Reminder not found.", logging.Entry("ownerID", ownerID), logging.Entry("reminderID", id))
			return m.reply(ctx, ownerID, err, m.notifier.SendText(ctx, ownerID, TextReminderNotFound))
		}
		return m.fail(ctx, ownerID, err)
	}
	if text, err := editable(rem, flow); err != nil {
		m.log.Info(
			ctx,
			"Reminder can't be edited.",
			logging.Entry("reminderID", id),
			logging.Entry("flow", flow),
			logging.Entry("err", err),
		)
		return m.reply(ctx, ownerID, err, m.notifier.SendText(ctx, ownerID, text))
	}

	s := session.New(ownerID, flow, state, m.now())
	s.Draft.ReminderID = c.NewOptional(rem.ID, true)
	s.Draft.Description = rem.Description
	s.Draft.Every = rem.Every
	return m.enter(ctx, s, "")
}

// editable reports why the flow can't be started on the reminder. Only
// completed reminders can be returned, and only active ones can be changed.
func editable(rem reminder.Reminder, flow session.Flow) (string, error) {
	switch {
	case flow == session.FlowReturn && !rem.IsDone:
		return "The reminder is not completed.", reminder.ErrReminderNotDone
	case flow != session.FlowReturn && rem.IsDone:
		return TextReminderDone, reminder.ErrReminderDone
	case flow == session.FlowEditInterval && !rem.IsRecurring():
		return TextNotRecurring, reminder.ErrReminderNotRecurring
	}
	return "", nil
}

func (m *machine) HandleText(ctx context.Context, ownerID user.ID, text string) error {
	unlock := m.locks.Lock(ownerID)
	defer unlock()

	s, ok, err := m.load(ctx, ownerID)
	if err != nil {
		return m.fail(ctx, ownerID, err)
	}
	if !ok {
		return m.notifier.SendText(ctx, ownerID, TextIdle)
	}

	switch s.State {
	case session.StateAwaitingDescription:
		return m.onDescription(ctx, s, text)
	case session.StateAwaitingTime:
		return m.onTime(ctx, s, text)
	case session.StateAwaitingPeriodicInterval:
		return m.onInterval(ctx, s, text)
	case session.StateAwaitingPeriodicChoice, session.StateAwaitingAttachmentChoice:
		if choice, ok := ParseChoice(text); ok {
			return m.onChoice(ctx, s, choice)
		}
	case session.StateAwaitingAttachmentUpload:
		if strings.EqualFold(strings.TrimSpace(text), END_OF_UPLOAD) {
			return m.onUploadEnd(ctx, s)
		}
	}
	return m.prompt(ctx, s, "")
}

func (m *machine) HandleDate(ctx context.Context, ownerID user.ID, date session.Date) error {
	unlock := m.locks.Lock(ownerID)
	defer unlock()

	s, ok, err := m.load(ctx, ownerID)
	if err != nil {
		return m.fail(ctx, ownerID, err)
	}
	if !ok {
		return m.notifier.SendText(ctx, ownerID, TextIdle)
	}
	if s.State != session.StateAwaitingDate {
		return m.prompt(ctx, s, "")
	}

	s.Draft.Date = c.NewOptional(date, true)
	s.State = session.StateAwaitingTime
	return m.enter(ctx, s, "You selected "+date.String()+".")
}

func (m *machine) HandleChoice(ctx context.Context, ownerID user.ID, choice Choice) error {
	unlock := m.locks.Lock(ownerID)
	defer unlock()

	s, ok, err := m.load(ctx, ownerID)
	if err != nil {
		return m.fail(ctx, ownerID, err)
	}
	if !ok {
		return m.notifier.SendText(ctx, ownerID, TextIdle)
	}
	return m.onChoice(ctx, s, choice)
}

func (m *machine) HandleFile(ctx context.Context, ownerID user.ID, file attachment.File) error {
	unlock := m.locks.Lock(ownerID)
	defer unlock()

	s, ok, err := m.load(ctx, ownerID)
	if err != nil {
		return m.fail(ctx, ownerID, err)
	}
	if !ok {
		return m.notifier.SendText(ctx, ownerID, TextIdle)
	}
	if s.State != session.StateAwaitingAttachmentUpload || !s.Draft.ReminderID.IsPresent {
		return m.prompt(ctx, s, "")
	}

	att, err := m.attachments.Add(ctx, ownerID, s.Draft.ReminderID.Value, file)
	switch {
	case err == nil:
	case errors.Is(err, attachment.ErrUploadFailed), errors.Is(err, attachment.ErrEmptyFile):
		return m.reply(
			ctx,
			ownerID,
			err,
			m.notifier.PromptFreeText(ctx, ownerID, "Could not attach "+file.Name+". Try again or enter 'end'."),
		)
	case errors.Is(err, reminder.ErrReminderDoesNotExist):
		return m.vanished(ctx, s)
	default:
		return m.fail(ctx, ownerID, err)
	}

	s.Draft.HasPendingAttachment = true
	s.UpdatedAt = m.now()
	if err := m.sessions.Save(ctx, s); err != nil {
		return m.fail(ctx, ownerID, err)
	}
	return m.notifier.PromptFreeText(
		ctx,
		ownerID,
		"File "+att.Name+" is attached. Send more files or enter 'end'.",
	)
}

func (m *machine) State(ctx context.Context, ownerID user.ID) (session.State, error) {
	s, ok, err := m.load(ctx, ownerID)
	if err != nil {
		return session.StateIdle, err
	}
	if !ok {
		return session.StateIdle, nil
	}
	return s.State, nil
}

func (m *machine) Reset(ctx context.Context, ownerID user.ID) error {
	unlock := m.locks.Lock(ownerID)
	defer unlock()

	if err := m.sessions.Delete(ctx, ownerID); err != nil && !errors.Is(err, session.ErrSessionDoesNotExist) {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
		return err
	}
	return nil
}

func (m *machine) onDescription(ctx context.Context, s session.Session, text string) error {
	if err := reminder.ValidateDescription(text); err != nil {
		return m.prompt(ctx, s, "The description must be a non-empty text.")
	}
	description := strings.TrimSpace(text)

	if s.Flow == session.FlowCreate {
		s.Draft.Description = description
		s.State = session.StateAwaitingDate
		return m.enter(ctx, s, "")
	}

	_, err := m.updateReminder(ctx, reminder.UpdateInput{
		OwnerID:             s.OwnerID,
		ID:                  s.Draft.ReminderID.Value,
		DoDescriptionUpdate: true,
		Description:         description,
	})
	if err != nil {
		return m.storeFailure(ctx, s, err)
	}
	s.Draft.Description = description
	s.State = session.StateUpdated
	return m.enter(ctx, s, "")
}

func (m *machine) onTime(ctx context.Context, s session.Session, text string) error {
	clock, err := time.Parse("15:04", strings.TrimSpace(text))
	if err != nil {
		return m.notifier.PromptFreeText(ctx, s.OwnerID, TextInvalidTime)
	}
	if !s.Draft.Date.IsPresent {
		s.State = session.StateAwaitingDate
		return m.enter(ctx, s, "")
	}
	fireAt := s.Draft.Date.Value.At(clock.Hour(), clock.Minute(), m.location)

	switch s.Flow {
	case session.FlowCreate:
		rem, err := m.createReminder(ctx, s.OwnerID, s.Draft.Description, fireAt)
		if err != nil {
			return m.fail(ctx, s.OwnerID, err)
		}
		s.Draft.ReminderID = c.NewOptional(rem.ID, true)
		s.Draft.FireAt = c.NewOptional(rem.FireAt, true)
		s.State = session.StateAwaitingPeriodicChoice
		s.UpdatedAt = m.now()
		// The row is useless without a session pointing to it, a retry of
		// this step would create another one.
		if err := m.sessions.Save(ctx, s); err != nil {
			m.discardReminder(ctx, s.OwnerID, rem.ID)
			return m.fail(ctx, s.OwnerID, err)
		}
		return m.prompt(ctx, s, "")
	default:
		_, err := m.updateReminder(ctx, reminder.UpdateInput{
			OwnerID:        s.OwnerID,
			ID:             s.Draft.ReminderID.Value,
			DoFireAtUpdate: true,
			FireAt:         fireAt,
			DoIsDoneUpdate: s.Flow == session.FlowReturn,
			IsDone:         false,
		})
		if err != nil {
			return m.storeFailure(ctx, s, err)
		}
		s.Draft.FireAt = c.NewOptional(fireAt, true)
		s.State = session.StateUpdated
		return m.enter(ctx, s, "")
	}
}

func (m *machine) onInterval(ctx context.Context, s session.Session, text string) error {
	interval, err := reminder.ParseInterval(text)
	if err != nil {
		return m.notifier.PromptFreeText(ctx, s.OwnerID, TextInvalidInterval)
	}
	if !s.Draft.ReminderID.IsPresent {
		return m.fail(ctx, s.OwnerID, e.NewInvalidStateError("interval step without a reminder"))
	}

	_, err = m.updateReminder(ctx, reminder.UpdateInput{
		OwnerID:       s.OwnerID,
		ID:            s.Draft.ReminderID.Value,
		DoEveryUpdate: true,
		Every:         c.NewOptional(interval, true),
	})
	if err != nil {
		return m.storeFailure(ctx, s, err)
	}
	s.Draft.Every = c.NewOptional(interval, true)
	if s.Flow == session.FlowCreate {
		s.State = session.StateAwaitingAttachmentChoice
	} else {
		s.State = session.StateUpdated
	}
	return m.enter(ctx, s, intervalNotice(s))
}

func (m *machine) onChoice(ctx context.Context, s session.Session, choice Choice) error {
	switch s.State {
	case session.StateAwaitingPeriodicChoice:
		if choice == ChoiceYes {
			s.State = session.StateAwaitingPeriodicInterval
			return m.enter(ctx, s, "")
		}
		s.State = session.StateAwaitingAttachmentChoice
		return m.enter(ctx, s, TextOneTime)
	case session.StateAwaitingAttachmentChoice:
		if choice == ChoiceYes {
			s.State = session.StateAwaitingAttachmentUpload
		} else {
			s.State = session.StateCreated
		}
		return m.enter(ctx, s, "")
	default:
		return m.prompt(ctx, s, "")
	}
}

func (m *machine) onUploadEnd(ctx context.Context, s session.Session) error {
	if s.Flow == session.FlowCreate {
		s.State = session.StateCreated
	} else {
		s.State = session.StateUpdated
	}
	return m.enter(ctx, s, "")
}

// enter persists the session in its new state and sends the prompt of the
// state. Terminal states drop the session.
func (m *machine) enter(ctx context.Context, s session.Session, notice string) error {
	s.UpdatedAt = m.now()
	if s.State.IsTerminal() {
		err := m.sessions.Delete(ctx, s.OwnerID)
		if err != nil && !errors.Is(err, session.ErrSessionDoesNotExist) {
			return m.fail(ctx, s.OwnerID, err)
		}
		m.log.Info(
			ctx,
			"Conversation has been finished.",
			logging.Entry("ownerID", s.OwnerID),
			logging.Entry("flow", s.Flow),
			logging.Entry("state", s.State),
		)
	} else if err := m.sessions.Save(ctx, s); err != nil {
		return m.fail(ctx, s.OwnerID, err)
	}
	return m.prompt(ctx, s, notice)
}

func (m *machine) prompt(ctx context.Context, s session.Session, notice string) error {
	ownerID := s.OwnerID
	switch s.State {
	case session.StateAwaitingDescription:
		return m.notifier.PromptFreeText(ctx, ownerID, withNotice(notice, descriptionPrompt(s.Flow)))
	case session.StateAwaitingDate:
		return m.notifier.PromptDate(ctx, ownerID, withNotice(notice, datePrompt(s)))
	case session.StateAwaitingTime:
		return m.notifier.PromptFreeText(ctx, ownerID, withNotice(notice, "Now enter the time in HH:MM format."))
	case session.StateAwaitingPeriodicChoice:
		return m.notifier.PromptChoice(ctx, ownerID, withNotice(notice, periodicChoicePrompt(s, m.location)), yesNoKeyboard)
	case session.StateAwaitingPeriodicInterval:
		return m.notifier.PromptFreeText(
			ctx,
			ownerID,
			withNotice(notice, "Specify how often to remind in the format: days hours minutes. For example, 1 0 0 is every day."),
		)
	case session.StateAwaitingAttachmentChoice:
		return m.notifier.PromptChoice(ctx, ownerID, withNotice(notice, "Do I need to attach files to a reminder?"), yesNoKeyboard)
	case session.StateAwaitingAttachmentUpload:
		return m.notifier.PromptFreeText(ctx, ownerID, withNotice(notice, "Attach the required files, then enter 'end'."))
	case session.StateCreated:
		return m.notifier.SendText(ctx, ownerID, withNotice(notice, TextCreated))
	case session.StateUpdated:
		return m.notifier.SendText(ctx, ownerID, withNotice(notice, updatedText(s.Flow)))
	default:
		return m.notifier.SendText(ctx, ownerID, TextIdle)
	}
}

func (m *machine) load(ctx context.Context, ownerID user.ID) (session.Session, bool, error) {
	s, err := m.sessions.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, session.ErrSessionDoesNotExist) {
			return s, false, nil
		}
		return s, false, err
	}
	return s, true, nil
}

// storeFailure handles a failed write of an edit flow. A vanished or an
// already fired reminder ends the dialog, anything else keeps the current
// state.
func (m *machine) storeFailure(ctx context.Context, s session.Session, err error) error {
	if errors.Is(err, reminder.ErrReminderDoesNotExist) {
		return m.vanished(ctx, s)
	}
	if errors.Is(err, reminder.ErrReminderDone) {
		return m.fired(ctx, s)
	}
	return m.fail(ctx, s.OwnerID, err)
}

func (m *machine) fired(ctx context.Context, s session.Session) error {
	m.log.Info(
		ctx,
		"Reminder was completed during the conversation.",
		logging.Entry("ownerID", s.OwnerID),
		logging.Entry("reminderID", s.Draft.ReminderID.Value),
	)
	if err := m.sessions.Delete(ctx, s.OwnerID); err != nil && !errors.Is(err, session.ErrSessionDoesNotExist) {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", s.OwnerID))
	}
	return m.reply(
		ctx,
		s.OwnerID,
		reminder.ErrReminderDone,
		m.notifier.SendText(ctx, s.OwnerID, TextReminderFired),
	)
}

func (m *machine) vanished(ctx context.Context, s session.Session) error {
	m.log.Info(
		ctx,
		"Reminder was deleted during the conversation.",
		logging.Entry("ownerID", s.OwnerID),
		logging.Entry("reminderID", s.Draft.ReminderID.Value),
	)
	if err := m.sessions.Delete(ctx, s.OwnerID); err != nil && !errors.Is(err, session.ErrSessionDoesNotExist) {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", s.OwnerID))
	}
	return m.reply(
		ctx,
		s.OwnerID,
		reminder.ErrReminderDoesNotExist,
		m.notifier.SendText(ctx, s.OwnerID, TextReminderNotFound),
	)
}

func (m *machine) fail(ctx context.Context, ownerID user.ID, err error) error {
	logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
	return m.reply(ctx, ownerID, err, m.notifier.SendText(ctx, ownerID, TextSomethingWrong))
}

// reply returns the cause, joined with a failure to deliver the answer.
func (m *machine) reply(ctx context.Context, ownerID user.ID, cause error, sendErr error) error {
	if sendErr != nil {
		m.log.Warning(ctx, "Could not answer the user.", logging.Entry("ownerID", ownerID), logging.Entry("err", sendErr))
		return errors.Join(cause, sendErr)
	}
	return cause
}

func (m *machine) getReminder(ctx context.Context, ownerID user.ID, id reminder.ID) (reminder.Reminder, error) {
	tx, err := m.unitOfWork.Begin(ctx)
	if err != nil {
		return reminder.Reminder{}, err
	}
	defer tx.Rollback(ctx)
	return tx.Reminders().GetByID(ctx, ownerID, id)
}

func (m *machine) createReminder(
	ctx context.Context,
	ownerID user.ID,
	description string,
	fireAt time.Time,
) (rem reminder.Reminder, err error) {
	tx, err := m.unitOfWork.Begin(ctx)
	if err != nil {
		return rem, err
	}
	defer tx.Rollback(ctx)

	if err := tx.Reminders().Lock(ctx, ownerID); err != nil {
		return rem, err
	}
	rem, err = tx.Reminders().Create(ctx, reminder.CreateInput{
		OwnerID:     ownerID,
		Description: description,
		FireAt:      fireAt,
		CreatedAt:   m.now(),
	})
	if err != nil {
		return rem, err
	}
	if err := tx.Commit(ctx); err != nil {
		return rem, err
	}
	m.log.Info(
		ctx,
		"Reminder has been successfully created.",
		logging.Entry("ownerID", ownerID),
		logging.Entry("reminderID", rem.ID),
		logging.Entry("fireAt", rem.FireAt),
	)
	return rem, nil
}

func (m *machine) updateReminder(ctx context.Context, input reminder.UpdateInput) (rem reminder.Reminder, err error) {
	tx, err := m.unitOfWork.Begin(ctx)
	if err != nil {
		return rem, err
	}
	defer tx.Rollback(ctx)

	if err := tx.Reminders().Lock(ctx, input.OwnerID); err != nil {
		return rem, err
	}
	current, err := tx.Reminders().GetByID(ctx, input.OwnerID, input.ID)
	if err != nil {
		return rem, err
	}
	// A fired reminder has a successor by now, changes belong there.
	// Returning is the only write allowed on a completed reminder.
	returning := input.DoIsDoneUpdate && !input.IsDone
	if current.IsDone && !returning {
		return current, reminder.ErrReminderDone
	}
	rem, err = tx.Reminders().Update(ctx, input)
	if err != nil {
		return rem, err
	}
	if err := tx.Commit(ctx); err != nil {
		return rem, err
	}
	m.log.Info(
		ctx,
		"Reminder has been successfully updated.",
		logging.Entry("ownerID", input.OwnerID),
		logging.Entry("reminderID", rem.ID),
	)
	return rem, nil
}

func (m *machine) discardReminder(ctx context.Context, ownerID user.ID, id reminder.ID) {
	err := func() error {
		tx, err := m.unitOfWork.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := tx.Reminders().Lock(ctx, ownerID); err != nil {
			return err
		}
		if err := tx.Reminders().Delete(ctx, ownerID, id); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}()
	if err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID), logging.Entry("reminderID", id))
		return
	}
	m.log.Info(
		ctx,
		"Reminder has been discarded.",
		logging.Entry("ownerID", ownerID),
		logging.Entry("reminderID", id),
	)
}
