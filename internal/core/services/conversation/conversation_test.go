package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"remindbot/internal/core/domain/attachment"
	c "remindbot/internal/core/domain/common"
	"remindbot/internal/core/domain/logging"
	"remindbot/internal/core/domain/notification"
	"remindbot/internal/core/domain/reminder"
	"remindbot/internal/core/domain/session"
	uow "remindbot/internal/core/domain/unit_of_work"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/core/services/attachments"
	"remindbot/internal/db/memory"
)

const OWNER_ID = user.ID(10)

var (
	Location = time.FixedZone("UTC+3", 3*60*60)
	Now      = time.Date(2024, 3, 1, 8, 0, 0, 0, Location)
	Date     = session.Date{Year: 2024, Month: time.March, Day: 5}
)

type fixture struct {
	log      *logging.FakeLogger
	uow      *uow.FakeUnitOfWork
	sessions *session.FakeRepository
	notifier *notification.FakeNotifier
	storage  *attachment.FakeBlobStorage
	machine  *machine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		log:      logging.NewFakeLogger(),
		uow:      uow.NewFakeUnitOfWork(memory.NewUnitOfWork(nil)),
		sessions: session.NewFakeRepository(),
		notifier: notification.NewFakeNotifier(),
		storage:  attachment.NewFakeBlobStorage(),
	}
	now := func() time.Time { return Now }
	manager := attachments.New(f.log, f.uow, f.storage, time.Second, now)
	f.machine = New(f.log, f.uow, f.sessions, f.notifier, manager, Location, now).(*machine)
	return f
}

func (f *fixture) state(t *testing.T, ownerID user.ID) session.State {
	t.Helper()
	state, err := f.machine.State(context.Background(), ownerID)
	require.Nil(t, err)
	return state
}

func (f *fixture) last(t *testing.T) notification.FakeMessage {
	t.Helper()
	m, ok := f.notifier.Last()
	require.True(t, ok)
	return m
}

func (f *fixture) reminders(t *testing.T, ownerID user.ID) []reminder.Reminder {
	t.Helper()
	ctx := context.Background()
	tx, err := f.uow.Begin(ctx)
	require.Nil(t, err)
	defer tx.Rollback(ctx)
	reminders, err := tx.Reminders().Read(ctx, reminder.ReadOptions{OwnerID: ownerID, OrderBy: reminder.OrderByIDAsc})
	require.Nil(t, err)
	return reminders
}

func (f *fixture) createReminder(t *testing.T, isDone bool) reminder.Reminder {
	t.Helper()
	ctx := context.Background()
	tx, err := f.uow.Begin(ctx)
	require.Nil(t, err)
	defer tx.Rollback(ctx)
	rem, err := tx.Reminders().Create(ctx, reminder.CreateInput{
		OwnerID:     OWNER_ID,
		Description: "Water plants",
		FireAt:      Now.Add(time.Hour),
		CreatedAt:   Now,
	})
	require.Nil(t, err)
	if isDone {
		rem, err = tx.Reminders().Update(ctx, reminder.UpdateInput{
			OwnerID:        OWNER_ID,
			ID:             rem.ID,
			DoIsDoneUpdate: true,
			IsDone:         true,
		})
		require.Nil(t, err)
	}
	require.Nil(t, tx.Commit(ctx))
	return rem
}

func (f *fixture) createRecurringReminder(t *testing.T, every reminder.Interval) reminder.Reminder {
	t.Helper()
	ctx := context.Background()
	rem := f.createReminder(t, false)
	tx, err := f.uow.Begin(ctx)
	require.Nil(t, err)
	defer tx.Rollback(ctx)
	rem, err = tx.Reminders().Update(ctx, reminder.UpdateInput{
		OwnerID:       OWNER_ID,
		ID:            rem.ID,
		DoEveryUpdate: true,
		Every:         c.NewOptional(every, true),
	})
	require.Nil(t, err)
	require.Nil(t, tx.Commit(ctx))
	return rem
}

// advance does to the reminder what a fired recurrence does: the successor
// takes over and the original is completed.
func (f *fixture) advance(t *testing.T, rem reminder.Reminder) reminder.Reminder {
	t.Helper()
	ctx := context.Background()
	tx, err := f.uow.Begin(ctx)
	require.Nil(t, err)
	defer tx.Rollback(ctx)
	require.Nil(t, tx.Reminders().Lock(ctx, OWNER_ID))
	successor, err := tx.Reminders().Create(ctx, reminder.CreateInput{
		OwnerID:     OWNER_ID,
		Description: rem.Description,
		FireAt:      rem.Every.Value.NextFrom(rem.FireAt),
		Every:       rem.Every,
		CreatedAt:   Now,
	})
	require.Nil(t, err)
	_, err = tx.Reminders().Update(ctx, reminder.UpdateInput{
		OwnerID:        OWNER_ID,
		ID:             rem.ID,
		DoIsDoneUpdate: true,
		IsDone:         true,
	})
	require.Nil(t, err)
	require.Nil(t, tx.Commit(ctx))
	return successor
}

func TestCreateFlowWithRecurrenceAndAttachments(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	type step struct {
		id    string
		input func() error
		state session.State
		kind  notification.MessageKind
	}
	steps := []step{
		{"start", func() error { return f.machine.StartCreate(ctx, OWNER_ID) }, session.StateAwaitingDescription, notification.KindFreeText},
		{"description", func() error { return f.machine.HandleText(ctx, OWNER_ID, "Buy milk") }, session.StateAwaitingDate, notification.KindDate},
		{"date", func() error { return f.machine.HandleDate(ctx, OWNER_ID, Date) }, session.StateAwaitingTime, notification.KindFreeText},
		{"bad time", func() error { return f.machine.HandleText(ctx, OWNER_ID, "25:00") }, session.StateAwaitingTime, notification.KindFreeText},
		{"time", func() error { return f.machine.HandleText(ctx, OWNER_ID, "09:30") }, session.StateAwaitingPeriodicChoice, notification.KindChoice},
		{"repeat", func() error { return f.machine.HandleChoice(ctx, OWNER_ID, ChoiceYes) }, session.StateAwaitingPeriodicInterval, notification.KindFreeText},
		{"zero interval", func() error { return f.machine.HandleText(ctx, OWNER_ID, "0 0 0") }, session.StateAwaitingPeriodicInterval, notification.KindFreeText},
		{"interval", func() error { return f.machine.HandleText(ctx, OWNER_ID, "1 0 0") }, session.StateAwaitingAttachmentChoice, notification.KindChoice},
		{"attach", func() error { return f.machine.HandleChoice(ctx, OWNER_ID, ChoiceYes) }, session.StateAwaitingAttachmentUpload, notification.KindFreeText},
		{"file", func() error {
			return f.machine.HandleFile(ctx, OWNER_ID, attachment.File{Name: "list.txt", Content: []byte("milk")})
		}, session.StateAwaitingAttachmentUpload, notification.KindFreeText},
		{"end", func() error { return f.machine.HandleText(ctx, OWNER_ID, "END") }, session.StateIdle, notification.KindText},
	}

	for _, step := range steps {
		before := len(f.notifier.Messages())
		err := step.input()
		require.Nil(err, step.id)
		require.Len(f.notifier.Messages(), before+1, step.id)
		require.Equal(step.state, f.state(t, OWNER_ID), step.id)
		require.Equal(step.kind, f.last(t).Kind, step.id)
	}

	require.Equal(TextCreated, f.last(t).Text)
	reminders := f.reminders(t, OWNER_ID)
	require.Len(reminders, 1)
	rem := reminders[0]
	require.Equal("Buy milk", rem.Description)
	require.True(time.Date(2024, 3, 5, 9, 30, 0, 0, Location).Equal(rem.FireAt))
	require.Equal(c.NewOptional(reminder.Interval{Days: 1}, true), rem.Every)
	require.True(rem.HasAttachments)
	require.False(rem.IsDone)
	require.Equal(1, f.storage.Len())
	require.Equal(0, f.machine.locks.size())
}

func TestCreateFlowOneTimeWithoutAttachments(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	require.Nil(f.machine.StartCreate(ctx, OWNER_ID))
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "Call mom"))
	require.Nil(f.machine.HandleDate(ctx, OWNER_ID, Date))
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "7:05"))

	// Exercise ---
	require.Nil(f.machine.HandleChoice(ctx, OWNER_ID, ChoiceNo))
	oneTime := f.last(t)
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "no"))

	// Verify ---
	require.Equal(notification.KindChoice, oneTime.Kind)
	require.Contains(oneTime.Text, TextOneTime)
	require.Equal(TextCreated, f.last(t).Text)
	require.Equal(session.StateIdle, f.state(t, OWNER_ID))
	reminders := f.reminders(t, OWNER_ID)
	require.Len(reminders, 1)
	require.False(reminders[0].Every.IsPresent)
	require.False(reminders[0].HasAttachments)
	require.True(time.Date(2024, 3, 5, 7, 5, 0, 0, Location).Equal(reminders[0].FireAt))
}

func TestReminderIsPersistedAtTimeStep(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	f := newFixture(t)
	require.Nil(f.machine.StartCreate(ctx, OWNER_ID))
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "Call mom"))
	require.Nil(f.machine.HandleDate(ctx, OWNER_ID, Date))
	require.Empty(f.reminders(t, OWNER_ID))

	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "10:00"))
	require.Len(f.reminders(t, OWNER_ID), 1)
	require.Contains(f.last(t).Text, "2024-03-05 10:00")
}

func TestInputNotFittingStateRepeatsPrompt(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	require.Nil(f.machine.StartCreate(ctx, OWNER_ID))
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "Call mom"))
	datePrompt := f.last(t)

	// Exercise ---
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "tomorrow"))
	afterText := f.last(t)
	require.Nil(f.machine.HandleChoice(ctx, OWNER_ID, ChoiceYes))
	afterChoice := f.last(t)
	require.Nil(f.machine.HandleFile(ctx, OWNER_ID, attachment.File{Name: "a", Content: []byte("a")}))
	afterFile := f.last(t)

	// Verify ---
	require.Equal(datePrompt, afterText)
	require.Equal(datePrompt, afterChoice)
	require.Equal(datePrompt, afterFile)
	require.Equal(session.StateAwaitingDate, f.state(t, OWNER_ID))
	require.Equal(0, f.storage.Uploads())
}

func TestEmptyDescriptionIsRejected(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	f := newFixture(t)
	require.Nil(f.machine.StartCreate(ctx, OWNER_ID))
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "   "))
	require.Equal(session.StateAwaitingDescription, f.state(t, OWNER_ID))
	require.Equal(notification.KindFreeText, f.last(t).Kind)
}

func TestIdleInput(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	require.Nil(f.machine.HandleText(context.Background(), OWNER_ID, "hello"))
	require.Equal(TextIdle, f.last(t).Text)
	require.Nil(f.machine.HandleChoice(context.Background(), OWNER_ID, ChoiceYes))
	require.Equal(TextIdle, f.last(t).Text)
}

func TestEditDescription(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	rem := f.createReminder(t, false)

	// Exercise ---
	require.Nil(f.machine.StartEditDescription(ctx, OWNER_ID, rem.ID))
	require.Equal(session.StateAwaitingDescription, f.state(t, OWNER_ID))
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "Water all plants"))

	// Verify ---
	require.Equal(session.StateIdle, f.state(t, OWNER_ID))
	require.Equal("Description successfully updated.", f.last(t).Text)
	updated := f.reminders(t, OWNER_ID)[0]
	require.Equal("Water all plants", updated.Description)
	require.True(rem.FireAt.Equal(updated.FireAt))
	require.Equal(rem.Every, updated.Every)
}

func TestEditDate(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	rem := f.createReminder(t, false)

	// Exercise ---
	require.Nil(f.machine.StartEditDate(ctx, OWNER_ID, rem.ID))
	require.Equal(notification.KindDate, f.last(t).Kind)
	require.Nil(f.machine.HandleDate(ctx, OWNER_ID, Date))
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "18:45"))

	// Verify ---
	require.Equal(session.StateIdle, f.state(t, OWNER_ID))
	updated := f.reminders(t, OWNER_ID)[0]
	require.True(time.Date(2024, 3, 5, 18, 45, 0, 0, Location).Equal(updated.FireAt))
	require.Equal(rem.Description, updated.Description)
	require.False(updated.IsDone)
}

func TestReturnCompletedReminder(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	rem := f.createReminder(t, true)

	// Exercise ---
	require.Nil(f.machine.StartReturn(ctx, OWNER_ID, rem.ID))
	require.Nil(f.machine.HandleDate(ctx, OWNER_ID, Date))
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "12:00"))

	// Verify ---
	require.Equal("The reminder was successfully returned with a new date.", f.last(t).Text)
	updated := f.reminders(t, OWNER_ID)[0]
	require.False(updated.IsDone)
	require.True(time.Date(2024, 3, 5, 12, 0, 0, 0, Location).Equal(updated.FireAt))
}

func TestReturnActiveReminderIsRejected(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	rem := f.createReminder(t, false)

	err := f.machine.StartReturn(context.Background(), OWNER_ID, rem.ID)

	require.ErrorIs(err, reminder.ErrReminderNotDone)
	require.Equal(session.StateIdle, f.state(t, OWNER_ID))
}

func TestEditInterval(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	rem := f.createRecurringReminder(t, reminder.Interval{Days: 1})

	// Exercise ---
	require.Nil(f.machine.StartEditInterval(ctx, OWNER_ID, rem.ID))
	require.Equal(session.StateAwaitingPeriodicInterval, f.state(t, OWNER_ID))
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "0 2 30"))

	// Verify ---
	require.Equal(session.StateIdle, f.state(t, OWNER_ID))
	require.Contains(f.last(t).Text, "2h 30m")
	updated := f.reminders(t, OWNER_ID)[0]
	require.Equal(c.NewOptional(reminder.Interval{Hours: 2, Minutes: 30}, true), updated.Every)
	require.True(rem.FireAt.Equal(updated.FireAt))
}

func TestAddAttachmentsToExistingReminder(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	rem := f.createReminder(t, false)

	// Exercise ---
	require.Nil(f.machine.StartAddAttachments(ctx, OWNER_ID, rem.ID))
	for _, name := range []string{"a.txt", "b.txt"} {
		require.Nil(f.machine.HandleFile(ctx, OWNER_ID, attachment.File{Name: name, Content: []byte(name)}))
	}
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "end"))

	// Verify ---
	require.Equal("Files are attached.", f.last(t).Text)
	require.Equal(2, f.storage.Len())
	require.True(f.reminders(t, OWNER_ID)[0].HasAttachments)
}

func TestStartEditOfMissingReminder(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	err := f.machine.StartEditDescription(context.Background(), OWNER_ID, 99)

	require.ErrorIs(err, reminder.ErrReminderDoesNotExist)
	require.Equal(TextReminderNotFound, f.last(t).Text)
	require.Equal(session.StateIdle, f.state(t, OWNER_ID))
}

func TestReminderDeletedDuringEdit(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	rem := f.createReminder(t, false)
	require.Nil(f.machine.StartEditDescription(ctx, OWNER_ID, rem.ID))
	tx, err := f.uow.Begin(ctx)
	require.Nil(err)
	require.Nil(tx.Reminders().Delete(ctx, OWNER_ID, rem.ID))
	require.Nil(tx.Commit(ctx))

	// Exercise ---
	err = f.machine.HandleText(ctx, OWNER_ID, "New text")

	// Verify ---
	require.ErrorIs(err, reminder.ErrReminderDoesNotExist)
	require.Equal(TextReminderNotFound, f.last(t).Text)
	require.Equal(session.StateIdle, f.state(t, OWNER_ID))
}

func TestStoreErrorKeepsState(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	require.Nil(f.machine.StartCreate(ctx, OWNER_ID))
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "Call mom"))
	require.Nil(f.machine.HandleDate(ctx, OWNER_ID, Date))
	storeErr := errors.New("store is down")
	f.uow.SetBeginError(storeErr)

	// Exercise ---
	err := f.machine.HandleText(ctx, OWNER_ID, "10:00")

	// Verify ---
	require.ErrorIs(err, storeErr)
	require.Equal(TextSomethingWrong, f.last(t).Text)
	require.Equal(session.StateAwaitingTime, f.state(t, OWNER_ID))
	require.Equal(1, f.log.CountLevel(logging.ERROR))

	f.uow.SetBeginError(nil)
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "10:00"))
	require.Equal(session.StateAwaitingPeriodicChoice, f.state(t, OWNER_ID))
}

func TestSessionSaveFailureDoesNotDuplicateReminder(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	require.Nil(f.machine.StartCreate(ctx, OWNER_ID))
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "Call mom"))
	require.Nil(f.machine.HandleDate(ctx, OWNER_ID, Date))
	saveErr := errors.New("redis is down")
	f.sessions.SaveError = saveErr

	// Exercise ---
	err := f.machine.HandleText(ctx, OWNER_ID, "10:00")

	// Verify ---
	require.ErrorIs(err, saveErr)
	require.Equal(TextSomethingWrong, f.last(t).Text)
	require.Equal(session.StateAwaitingTime, f.state(t, OWNER_ID))
	require.Empty(f.reminders(t, OWNER_ID))

	f.sessions.SaveError = nil
	require.Nil(f.machine.HandleText(ctx, OWNER_ID, "10:00"))
	require.Equal(session.StateAwaitingPeriodicChoice, f.state(t, OWNER_ID))
	reminders := f.reminders(t, OWNER_ID)
	require.Len(reminders, 1)
	require.Equal("Call mom", reminders[0].Description)
}

func TestEditOfReminderFiredMeanwhile(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	every := reminder.Interval{Days: 1}
	rem := f.createRecurringReminder(t, every)
	require.Nil(f.machine.StartEditInterval(ctx, OWNER_ID, rem.ID))
	successor := f.advance(t, rem)

	// Exercise ---
	err := f.machine.HandleText(ctx, OWNER_ID, "0 2 0")

	// Verify ---
	require.ErrorIs(err, reminder.ErrReminderDone)
	require.Equal(TextReminderFired, f.last(t).Text)
	require.Equal(session.StateIdle, f.state(t, OWNER_ID))
	reminders := f.reminders(t, OWNER_ID)
	require.Len(reminders, 2)
	require.Equal(rem.ID, reminders[0].ID)
	require.True(reminders[0].IsDone)
	require.Equal(c.NewOptional(every, true), reminders[0].Every)
	require.Equal(successor.ID, reminders[1].ID)
	require.Equal(c.NewOptional(every, true), reminders[1].Every)
}

func TestDescriptionEditOfReminderFiredMeanwhile(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	rem := f.createReminder(t, false)
	require.Nil(f.machine.StartEditDescription(ctx, OWNER_ID, rem.ID))
	tx, err := f.uow.Begin(ctx)
	require.Nil(err)
	_, err = tx.Reminders().Update(ctx, reminder.UpdateInput{
		OwnerID:        OWNER_ID,
		ID:             rem.ID,
		DoIsDoneUpdate: true,
		IsDone:         true,
	})
	require.Nil(err)
	require.Nil(tx.Commit(ctx))

	// Exercise ---
	err = f.machine.HandleText(ctx, OWNER_ID, "New text")

	// Verify ---
	require.ErrorIs(err, reminder.ErrReminderDone)
	require.Equal(TextReminderFired, f.last(t).Text)
	require.Equal(session.StateIdle, f.state(t, OWNER_ID))
	require.Equal("Water plants", f.reminders(t, OWNER_ID)[0].Description)
}

func TestStartEditRejectsUnsuitableReminder(t *testing.T) {
	cases := []struct {
		id       string
		isDone   bool
		start    func(m Machine) func(ctx context.Context, ownerID user.ID, id reminder.ID) error
		expected error
		text     string
	}{
		{
			id:       "description of completed",
			isDone:   true,
			start:    func(m Machine) func(context.Context, user.ID, reminder.ID) error { return m.StartEditDescription },
			expected: reminder.ErrReminderDone,
			text:     TextReminderDone,
		},
		{
			id:       "date of completed",
			isDone:   true,
			start:    func(m Machine) func(context.Context, user.ID, reminder.ID) error { return m.StartEditDate },
			expected: reminder.ErrReminderDone,
			text:     TextReminderDone,
		},
		{
			id:       "interval of completed",
			isDone:   true,
			start:    func(m Machine) func(context.Context, user.ID, reminder.ID) error { return m.StartEditInterval },
			expected: reminder.ErrReminderDone,
			text:     TextReminderDone,
		},
		{
			id:       "attachments of completed",
			isDone:   true,
			start:    func(m Machine) func(context.Context, user.ID, reminder.ID) error { return m.StartAddAttachments },
			expected: reminder.ErrReminderDone,
			text:     TextReminderDone,
		},
		{
			id:       "interval of one-time",
			start:    func(m Machine) func(context.Context, user.ID, reminder.ID) error { return m.StartEditInterval },
			expected: reminder.ErrReminderNotRecurring,
			text:     TextNotRecurring,
		},
		{
			id:       "return of active",
			start:    func(m Machine) func(context.Context, user.ID, reminder.ID) error { return m.StartReturn },
			expected: reminder.ErrReminderNotDone,
			text:     "The reminder is not completed.",
		},
	}
	for _, testcase := range cases {
		t.Run(testcase.id, func(t *testing.T) {
			// Setup ---
			f := newFixture(t)
			rem := f.createReminder(t, testcase.isDone)

			// Exercise ---
			err := testcase.start(f.machine)(context.Background(), OWNER_ID, rem.ID)

			// Verify ---
			require.ErrorIs(t, err, testcase.expected)
			require.Equal(t, testcase.text, f.last(t).Text)
			require.Equal(t, session.StateIdle, f.state(t, OWNER_ID))
		})
	}
}

func TestUploadFailureKeepsState(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// Setup ---
	f := newFixture(t)
	rem := f.createReminder(t, false)
	require.Nil(f.machine.StartAddAttachments(ctx, OWNER_ID, rem.ID))
	f.storage.UploadError = errors.New("remote is down")

	// Exercise ---
	err := f.machine.HandleFile(ctx, OWNER_ID, attachment.File{Name: "a.txt", Content: []byte("a")})

	// Verify ---
	require.ErrorIs(err, attachment.ErrUploadFailed)
	require.Equal(session.StateAwaitingAttachmentUpload, f.state(t, OWNER_ID))
	require.Contains(f.last(t).Text, "Could not attach a.txt")
	require.False(f.reminders(t, OWNER_ID)[0].HasAttachments)
}

func TestStartingFlowReplacesSession(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	f := newFixture(t)
	rem := f.createRecurringReminder(t, reminder.Interval{Days: 1})
	require.Nil(f.machine.StartCreate(ctx, OWNER_ID))
	require.Nil(f.machine.StartEditInterval(ctx, OWNER_ID, rem.ID))

	require.Equal(session.StateAwaitingPeriodicInterval, f.state(t, OWNER_ID))
	require.Nil(f.machine.Reset(ctx, OWNER_ID))
	require.Equal(session.StateIdle, f.state(t, OWNER_ID))
}

func TestOwnersAreIndependent(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	// Exercise ---
	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(ownerID user.ID) {
			defer wg.Done()
			description := fmt.Sprintf("Task of %d", ownerID)
			inputs := []func() error{
				func() error { return f.machine.StartCreate(ctx, ownerID) },
				func() error { return f.machine.HandleText(ctx, ownerID, description) },
				func() error { return f.machine.HandleDate(ctx, ownerID, Date) },
				func() error { return f.machine.HandleText(ctx, ownerID, "10:00") },
				func() error { return f.machine.HandleChoice(ctx, ownerID, ChoiceNo) },
				func() error { return f.machine.HandleChoice(ctx, ownerID, ChoiceNo) },
			}
			for _, input := range inputs {
				if err := input(); err != nil {
					errs <- err
				}
			}
		}(user.ID(i))
	}
	wg.Wait()
	close(errs)

	// Verify ---
	for err := range errs {
		require.Nil(err)
	}
	for i := 1; i <= 10; i++ {
		ownerID := user.ID(i)
		reminders := f.reminders(t, ownerID)
		require.Len(reminders, 1)
		require.Equal(fmt.Sprintf("Task of %d", ownerID), reminders[0].Description)
		require.Equal(reminder.ID(1), reminders[0].ID)
		require.Equal(session.StateIdle, f.state(t, ownerID))
		require.Len(f.notifier.MessagesOf(ownerID), 6)
	}
}

func TestParseChoice(t *testing.T) {
	cases := []struct {
		value    string
		expected Choice
		ok       bool
	}{
		{value: "choice:yes", expected: ChoiceYes, ok: true},
		{value: "choice:no", expected: ChoiceNo, ok: true},
		{value: "Yes", expected: ChoiceYes, ok: true},
		{value: " NO ", expected: ChoiceNo, ok: true},
		{value: "maybe", ok: false},
	}
	for _, testcase := range cases {
		t.Run(testcase.value, func(t *testing.T) {
			choice, ok := ParseChoice(testcase.value)
			require.Equal(t, testcase.ok, ok)
			require.Equal(t, testcase.expected, choice)
		})
	}
}
