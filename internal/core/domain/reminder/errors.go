package reminder

import "errors"

var (
	ErrReminderDoesNotExist     = errors.New("reminder does not exist")
	ErrReminderConflict         = errors.New("reminder id is already taken")
	ErrReminderEmptyDescription = errors.New("reminder description must not be empty")
	ErrReminderTooLong          = errors.New("reminder description is too long")
	ErrReminderDone             = errors.New("reminder is already completed")
	ErrReminderNotDone          = errors.New("reminder is not completed")
	ErrReminderNotRecurring     = errors.New("reminder is not recurring")
)
