package conversation

import (
	"fmt"
	"strings"
	"time"

	"remindbot/internal/core/domain/notification"
	"remindbot/internal/core/domain/session"
)

type Choice string

const (
	ChoiceYes Choice = "yes"
	ChoiceNo  Choice = "no"
)

const CHOICE_CALLBACK_PREFIX = "choice:"

// ParseChoice accepts callback data ("choice:yes") as well as a typed answer.
func ParseChoice(value string) (Choice, bool) {
	value = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(value, CHOICE_CALLBACK_PREFIX)))
	switch Choice(value) {
	case ChoiceYes:
		return ChoiceYes, true
	case ChoiceNo:
		return ChoiceNo, true
	default:
		return "", false
	}
}

var yesNoKeyboard = notification.Keyboard{
	notification.Row(
		notification.Option{Label: "Yes", Data: CHOICE_CALLBACK_PREFIX + string(ChoiceYes)},
		notification.Option{Label: "No", Data: CHOICE_CALLBACK_PREFIX + string(ChoiceNo)},
	),
}

const (
	TextIdle             = "Message me /create to create a reminder."
	TextSomethingWrong   = "Something went wrong, please try again."
	TextReminderNotFound = "The reminder no longer exists."
	TextInvalidTime      = "Unknown time. Enter in HH:MM format."
	TextInvalidInterval  = "Unknown period. Enter in the format: days hours minutes."
	TextCreated          = "Reminder created successfully!"
	TextOneTime          = "The reminder will be one-time."
	TextReminderFired    = "The reminder has already fired. Open the current tasks to change the next one."
	TextReminderDone     = "The reminder is completed."
	TextNotRecurring     = "The reminder is not recurring."
	END_OF_UPLOAD        = "end"
	DATETIME_LAYOUT      = "2006-01-02 15:04"
)

func withNotice(notice, text string) string {
	if notice == "" {
		return text
	}
	return notice + "\n" + text
}

func descriptionPrompt(flow session.Flow) string {
	if flow == session.FlowCreate {
		return "What needs to be reminded?"
	}
	return "Enter a new description:"
}

func datePrompt(s session.Session) string {
	if s.Flow == session.FlowCreate {
		return fmt.Sprintf("When %s?", s.Draft.Description)
	}
	return "Select a new date:"
}

func periodicChoicePrompt(s session.Session, loc *time.Location) string {
	return fmt.Sprintf(
		"Reminder '%s' set to %s. Does it need to be repeated?",
		s.Draft.Description,
		s.Draft.FireAt.Value.In(loc).Format(DATETIME_LAYOUT),
	)
}

func intervalNotice(s session.Session) string {
	return fmt.Sprintf("Reminders will come at intervals %s.", s.Draft.Every.Value.Humanize())
}

func updatedText(flow session.Flow) string {
	switch flow {
	case session.FlowEditDescription:
		return "Description successfully updated."
	case session.FlowEditDate:
		return "The date and time have been successfully updated."
	case session.FlowReturn:
		return "The reminder was successfully returned with a new date."
	case session.FlowEditInterval:
		return "Frequency successfully updated."
	case session.FlowAddAttachments:
		return "Files are attached."
	default:
		return "Reminder successfully updated."
	}
}
