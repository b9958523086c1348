package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"remindbot/internal/core/domain/attachment"
	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/logging"
	ratelimiter "remindbot/internal/core/domain/rate_limiter"
	"remindbot/internal/core/domain/reminder"
	"remindbot/internal/core/domain/session"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/core/services"
	"remindbot/internal/core/services/attachments"
	completereminder "remindbot/internal/core/services/complete_reminder"
	"remindbot/internal/core/services/conversation"
	deletereminder "remindbot/internal/core/services/delete_reminder"
	listuserreminders "remindbot/internal/core/services/list_user_reminders"
	tg "remindbot/internal/implementations/telegram"
)

const (
	COMMAND_START  = "/start"
	COMMAND_CREATE = "/create"
	COMMAND_CANCEL = "/cancel"

	MENU_CURRENT_TASKS   = "Current tasks"
	MENU_COMPLETED_TASKS = "Completed tasks"
)

const (
	ActionEditDescription = "edit_description"
	ActionEditDate        = "edit_date"
	ActionEditPeriod      = "edit_period"
	ActionEditFiles       = "edit_files"
	ActionDelete          = "delete"
	ActionComplete        = "complete"
	ActionReturn          = "return"
	ActionFileDelete      = "file_delete"
	ActionAddAttachment   = "add_attachment"
)

const (
	TextGreeting          = "Hello! I will remind you of your tasks. Message me /create to create a reminder."
	TextCancelled         = "Cancelled."
	TextNoCurrentTasks    = "You have no current tasks."
	TextNoCompletedTasks  = "You have no completed tasks."
	TextDeleted           = "Reminder deleted."
	TextCompleted         = "Reminder marked as done."
	TextAlreadyCompleted  = "The reminder is already completed."
	TextNoFiles           = "The reminder has no files."
	TextFileNotFound      = "The file no longer exists."
	TextFileTooBig        = "The file is too big, the limit is 20 MB."
	TextUnsupportedAction = "Unknown action."
)

// Bot is the part of the Telegram client the chat router needs.
type Bot interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) error
	EditMessageReplyMarkup(ctx context.Context, chatID int64, messageID int64, markup tg.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, id string) error
	Download(ctx context.Context, fileID string) ([]byte, error)
}

type Input struct {
	OwnerID user.ID
	Update  tg.Update
}

func (i Input) GetRateLimitKey() string {
	return ratelimiter.UpdatesKey(i.OwnerID)
}

type Result struct{}

type dispatcher struct {
	log              logging.Logger
	bot              Bot
	machine          conversation.Machine
	listReminders    services.Service[listuserreminders.Input, listuserreminders.Result]
	completeReminder services.Service[completereminder.Input, completereminder.Result]
	deleteReminder   services.Service[deletereminder.Input, deletereminder.Result]
	attachments      attachments.Manager
	location         *time.Location
}

// NewDispatcher routes one chat update to the wizard or to a reminder use
// case. Replies are sent from here, so Run only fails for rejected input.
func NewDispatcher(
	log logging.Logger,
	bot Bot,
	machine conversation.Machine,
	listReminders services.Service[listuserreminders.Input, listuserreminders.Result],
	completeReminder services.Service[completereminder.Input, completereminder.Result],
	deleteReminder services.Service[deletereminder.Input, deletereminder.Result],
	attachments attachments.Manager,
	location *time.Location,
) services.Service[Input, Result] {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if bot == nil {
		panic(e.NewNilArgumentError("bot"))
	}
	if machine == nil {
		panic(e.NewNilArgumentError("machine"))
	}
	if listReminders == nil {
		panic(e.NewNilArgumentError("listReminders"))
	}
	if completeReminder == nil {
		panic(e.NewNilArgumentError("completeReminder"))
	}
	if deleteReminder == nil {
		panic(e.NewNilArgumentError("deleteReminder"))
	}
	if attachments == nil {
		panic(e.NewNilArgumentError("attachments"))
	}
	if location == nil {
		panic(e.NewNilArgumentError("location"))
	}
	return &dispatcher{
		log:              log,
		bot:              bot,
		machine:          machine,
		listReminders:    listReminders,
		completeReminder: completeReminder,
		deleteReminder:   deleteReminder,
		attachments:      attachments,
		location:         location,
	}
}

func (d *dispatcher) Run(ctx context.Context, input Input) (result Result, err error) {
	switch {
	case input.Update.CallbackQuery != nil:
		d.handleCallback(ctx, input.OwnerID, input.Update.CallbackQuery)
	case input.Update.Message != nil:
		d.handleMessage(ctx, input.OwnerID, input.Update.Message)
	default:
		d.log.Info(ctx, "Skip Telegram update.", logging.Entry("updateID", input.Update.ID))
	}
	return result, nil
}

func (d *dispatcher) handleMessage(ctx context.Context, ownerID user.ID, message *tg.Message) {
	if photo, ok := message.LargestPhoto(); ok {
		d.handleUpload(ctx, ownerID, photo.FileID, photoName(photo.FileID))
		return
	}
	if message.Document != nil {
		d.handleUpload(ctx, ownerID, message.Document.FileID, documentName(message.Document))
		return
	}

	text := strings.TrimSpace(message.Text)
	switch text {
	case COMMAND_START:
		d.resetDialog(ctx, ownerID)
		d.send(ctx, ownerID, TextGreeting, mainMenu())
	case COMMAND_CREATE:
		d.check(ctx, ownerID, d.machine.StartCreate(ctx, ownerID))
	case COMMAND_CANCEL:
		d.resetDialog(ctx, ownerID)
		d.send(ctx, ownerID, TextCancelled, mainMenu())
	case MENU_CURRENT_TASKS:
		d.resetDialog(ctx, ownerID)
		d.showCurrent(ctx, ownerID)
	case MENU_COMPLETED_TASKS:
		d.resetDialog(ctx, ownerID)
		d.showCompleted(ctx, ownerID)
	default:
		d.check(ctx, ownerID, d.machine.HandleText(ctx, ownerID, message.Text))
	}
}

func (d *dispatcher) handleUpload(ctx context.Context, ownerID user.ID, fileID string, name string) {
	content, err := d.bot.Download(ctx, fileID)
	if err != nil {
		if errors.Is(err, tg.ErrFileTooBig) {
			d.send(ctx, ownerID, TextFileTooBig, nil)
			return
		}
		logging.Error(ctx, d.log, err, logging.Entry("ownerID", ownerID), logging.Entry("fileID", fileID))
		d.send(ctx, ownerID, conversation.TextSomethingWrong, nil)
		return
	}
	d.check(ctx, ownerID, d.machine.HandleFile(ctx, ownerID, attachment.File{Name: name, Content: content}))
}

func (d *dispatcher) handleCallback(ctx context.Context, ownerID user.ID, query *tg.CallbackQuery) {
	if err := d.bot.AnswerCallbackQuery(ctx, query.ID); err != nil {
		d.log.Warning(ctx, "Could not answer callback query.", logging.Entry("err", err))
	}

	data := query.Data
	switch {
	case data == tg.IGNORE_CALLBACK:
		return
	case strings.HasPrefix(data, tg.CALENDAR_CALLBACK_PREFIX):
		d.switchCalendarMonth(ctx, ownerID, query)
		return
	case strings.HasPrefix(data, tg.DATE_CALLBACK_PREFIX):
		date, err := session.ParseDate(strings.TrimPrefix(data, tg.DATE_CALLBACK_PREFIX))
		if err != nil {
			d.send(ctx, ownerID, TextUnsupportedAction, nil)
			return
		}
		d.check(ctx, ownerID, d.machine.HandleDate(ctx, ownerID, date))
		return
	case strings.HasPrefix(data, conversation.CHOICE_CALLBACK_PREFIX):
		choice, ok := conversation.ParseChoice(data)
		if !ok {
			d.send(ctx, ownerID, TextUnsupportedAction, nil)
			return
		}
		d.check(ctx, ownerID, d.machine.HandleChoice(ctx, ownerID, choice))
		return
	}

	action, id, ok := parseAction(data)
	if !ok {
		d.send(ctx, ownerID, TextUnsupportedAction, nil)
		return
	}
	reminderID := reminder.ID(id)
	switch action {
	case ActionEditDescription:
		d.check(ctx, ownerID, d.machine.StartEditDescription(ctx, ownerID, reminderID))
	case ActionEditDate:
		d.check(ctx, ownerID, d.machine.StartEditDate(ctx, ownerID, reminderID))
	case ActionEditPeriod:
		d.check(ctx, ownerID, d.machine.StartEditInterval(ctx, ownerID, reminderID))
	case ActionReturn:
		d.check(ctx, ownerID, d.machine.StartReturn(ctx, ownerID, reminderID))
	case ActionAddAttachment:
		d.check(ctx, ownerID, d.machine.StartAddAttachments(ctx, ownerID, reminderID))
	case ActionEditFiles:
		d.showFiles(ctx, ownerID, reminderID)
	case ActionDelete:
		_, err := d.deleteReminder.Run(ctx, deletereminder.Input{OwnerID: ownerID, ReminderID: reminderID})
		d.reportResult(ctx, ownerID, err, TextDeleted)
	case ActionComplete:
		_, err := d.completeReminder.Run(ctx, completereminder.Input{OwnerID: ownerID, ReminderID: reminderID})
		d.reportResult(ctx, ownerID, err, TextCompleted)
	case ActionFileDelete:
		d.deleteFile(ctx, ownerID, attachment.ID(id))
	default:
		d.send(ctx, ownerID, TextUnsupportedAction, nil)
	}
}

func (d *dispatcher) switchCalendarMonth(ctx context.Context, ownerID user.ID, query *tg.CallbackQuery) {
	month, ok := tg.ParseCalendarMonth(query.Data, d.location)
	if !ok || query.Message == nil {
		return
	}
	err := d.bot.EditMessageReplyMarkup(ctx, query.Message.Chat.ID, query.Message.ID, tg.Calendar(month))
	if err != nil {
		d.log.Warning(
			ctx,
			"Could not switch calendar month.",
			logging.Entry("ownerID", ownerID),
			logging.Entry("err", err),
		)
	}
}

func (d *dispatcher) showCurrent(ctx context.Context, ownerID user.ID) {
	result, err := d.listReminders.Run(ctx, listuserreminders.Input{OwnerID: ownerID})
	if err != nil {
		d.send(ctx, ownerID, conversation.TextSomethingWrong, nil)
		return
	}
	if len(result.Reminders) == 0 {
		d.send(ctx, ownerID, TextNoCurrentTasks, nil)
		return
	}
	for _, item := range result.Reminders {
		d.send(ctx, ownerID, renderReminder(item, d.location), tg.InlineKeyboard(currentActions(item.Reminder)))
	}
}

func (d *dispatcher) showCompleted(ctx context.Context, ownerID user.ID) {
	result, err := d.listReminders.Run(ctx, listuserreminders.Input{OwnerID: ownerID, IsDone: true})
	if err != nil {
		d.send(ctx, ownerID, conversation.TextSomethingWrong, nil)
		return
	}
	if len(result.Reminders) == 0 {
		d.send(ctx, ownerID, TextNoCompletedTasks, nil)
		return
	}
	for _, item := range result.Reminders {
		d.send(ctx, ownerID, renderReminder(item, d.location), tg.InlineKeyboard(completedActions(item.Reminder)))
	}
}

func (d *dispatcher) showFiles(ctx context.Context, ownerID user.ID, reminderID reminder.ID) {
	files, err := d.attachments.List(ctx, ownerID, reminderID)
	if err != nil {
		d.send(ctx, ownerID, conversation.TextSomethingWrong, nil)
		return
	}
	text := TextNoFiles
	if len(files) > 0 {
		text = "Files:\n" + joinNames(files, "\n")
	}
	d.send(ctx, ownerID, text, tg.InlineKeyboard(fileActions(reminderID, files)))
}

func (d *dispatcher) deleteFile(ctx context.Context, ownerID user.ID, id attachment.ID) {
	att, err := d.attachments.Remove(ctx, ownerID, id)
	switch {
	case errors.Is(err, attachment.ErrAttachmentDoesNotExist):
		d.send(ctx, ownerID, TextFileNotFound, nil)
	case err != nil:
		d.send(ctx, ownerID, conversation.TextSomethingWrong, nil)
	default:
		d.send(ctx, ownerID, fmt.Sprintf("File %s deleted.", att.Name), nil)
	}
}

func (d *dispatcher) reportResult(ctx context.Context, ownerID user.ID, err error, success string) {
	switch {
	case err == nil:
		d.send(ctx, ownerID, success, nil)
	case errors.Is(err, reminder.ErrReminderDoesNotExist):
		d.send(ctx, ownerID, conversation.TextReminderNotFound, nil)
	case errors.Is(err, reminder.ErrReminderDone):
		d.send(ctx, ownerID, TextAlreadyCompleted, nil)
	default:
		d.send(ctx, ownerID, conversation.TextSomethingWrong, nil)
	}
}

// check reports machine errors the machine could not deliver itself.
func (d *dispatcher) check(ctx context.Context, ownerID user.ID, err error) {
	if err == nil {
		return
	}
	d.log.Warning(
		ctx,
		"Conversation input was not handled.",
		logging.Entry("ownerID", ownerID),
		logging.Entry("err", err),
	)
}

func (d *dispatcher) resetDialog(ctx context.Context, ownerID user.ID) {
	if err := d.machine.Reset(ctx, ownerID); err != nil {
		d.log.Warning(ctx, "Could not reset conversation.", logging.Entry("ownerID", ownerID), logging.Entry("err", err))
	}
}

func (d *dispatcher) send(ctx context.Context, ownerID user.ID, text string, markup interface{}) {
	if err := d.bot.SendMessage(ctx, int64(ownerID), text, markup); err != nil {
		logging.Error(ctx, d.log, err, logging.Entry("ownerID", ownerID))
	}
}

func parseAction(data string) (string, int64, bool) {
	action, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return "", 0, false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return action, id, true
}

func photoName(fileID string) string {
	return fmt.Sprintf("photo_%s.jpg", fileID)
}

func documentName(doc *tg.Document) string {
	if doc.FileName != "" {
		return doc.FileName
	}
	return fmt.Sprintf("document_%s", doc.FileID)
}
