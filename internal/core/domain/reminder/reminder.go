package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	c "remindbot/internal/core/domain/common"
	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/user"
)

const MAX_DESCRIPTION_LENGTH = 4000

// ID is a sequence number local to the owner. Two owners may both have a
// reminder with ID 1.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseID(value string) (ID, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid reminder id %q", value)
	}
	return ID(id), nil
}

type Reminder struct {
	OwnerID        user.ID
	ID             ID
	Description    string
	FireAt         time.Time
	IsDone         bool
	HasAttachments bool
	Every          c.Optional[Interval]
	CreatedAt      time.Time
}

func (r Reminder) IsRecurring() bool {
	return r.Every.IsPresent
}

func (r Reminder) IsDue(now time.Time) bool {
	return !r.IsDone && !r.FireAt.After(now)
}

func (r *Reminder) Validate() error {
	if r.ID <= 0 {
		return e.NewInvalidStateErrorf("reminder id must be positive, got %d", r.ID)
	}
	if r.OwnerID <= 0 {
		return e.NewInvalidStateErrorf("owner of reminder %d is not set", r.ID)
	}
	if r.FireAt.IsZero() {
		return e.NewInvalidStateErrorf("fire time of reminder %d is not set", r.ID)
	}
	if r.Every.IsPresent {
		if err := r.Every.Value.Validate(); err != nil {
			return e.NewInvalidStateErrorf("interval of reminder %d is not valid: %v", r.ID, err)
		}
	}
	return nil
}

func ValidateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return ErrReminderEmptyDescription
	}
	if utf8.RuneCountInString(description) > MAX_DESCRIPTION_LENGTH {
		return ErrReminderTooLong
	}
	return nil
}
