package telegram

import (
	"fmt"
	"strings"
	"time"

	"remindbot/internal/core/domain/attachment"
	"remindbot/internal/core/domain/notification"
	"remindbot/internal/core/domain/reminder"
	"remindbot/internal/core/services/conversation"
	listuserreminders "remindbot/internal/core/services/list_user_reminders"
	tg "remindbot/internal/implementations/telegram"
)

func mainMenu() tg.ReplyKeyboardMarkup {
	return tg.ReplyKeyboardMarkup{
		Keyboard: [][]tg.KeyboardButton{
			{{Text: MENU_CURRENT_TASKS}, {Text: MENU_COMPLETED_TASKS}},
		},
		ResizeKeyboard: true,
	}
}

func renderReminder(item listuserreminders.ReminderWithAttachments, loc *time.Location) string {
	rem := item.Reminder
	var b strings.Builder
	b.WriteString(rem.Description)
	fmt.Fprintf(&b, "\nDate: %s", rem.FireAt.In(loc).Format(conversation.DATETIME_LAYOUT))
	if rem.IsRecurring() {
		fmt.Fprintf(&b, "\nRepeats every %s", rem.Every.Value.Humanize())
	}
	if len(item.Attachments) > 0 {
		fmt.Fprintf(&b, "\nFiles: %s", joinNames(item.Attachments, ", "))
	}
	return b.String()
}

func joinNames(files []attachment.Attachment, sep string) string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return strings.Join(names, sep)
}

func actionData(action string, id fmt.Stringer) string {
	return action + ":" + id.String()
}

func currentActions(rem reminder.Reminder) notification.Keyboard {
	second := notification.Row(
		notification.Option{Label: "Change files", Data: actionData(ActionEditFiles, rem.ID)},
	)
	if rem.IsRecurring() {
		second = append(second, notification.Option{Label: "Change frequency", Data: actionData(ActionEditPeriod, rem.ID)})
	}
	return notification.Keyboard{
		notification.Row(
			notification.Option{Label: "Change description", Data: actionData(ActionEditDescription, rem.ID)},
			notification.Option{Label: "Change date", Data: actionData(ActionEditDate, rem.ID)},
		),
		second,
		notification.Row(
			notification.Option{Label: "Delete", Data: actionData(ActionDelete, rem.ID)},
			notification.Option{Label: "Done", Data: actionData(ActionComplete, rem.ID)},
		),
	}
}

func completedActions(rem reminder.Reminder) notification.Keyboard {
	return notification.Keyboard{
		notification.Row(
			notification.Option{Label: "Return with date change", Data: actionData(ActionReturn, rem.ID)},
		),
	}
}

func fileActions(reminderID reminder.ID, files []attachment.Attachment) notification.Keyboard {
	keyboard := make(notification.Keyboard, 0, len(files)+1)
	for _, f := range files {
		keyboard = append(keyboard, notification.Row(
			notification.Option{Label: "Delete " + f.Name, Data: actionData(ActionFileDelete, f.ID)},
		))
	}
	return append(keyboard, notification.Row(
		notification.Option{Label: "Add file", Data: actionData(ActionAddAttachment, reminderID)},
	))
}
