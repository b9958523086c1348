package session

import (
	"context"
	"errors"
	"time"

	c "remindbot/internal/core/domain/common"
	"remindbot/internal/core/domain/reminder"
	"remindbot/internal/core/domain/user"
)

var ErrSessionDoesNotExist = errors.New("conversation session does not exist")

type Flow string

const (
	FlowCreate          Flow = "create"
	FlowEditDescription Flow = "edit_description"
	FlowEditDate        Flow = "edit_date"
	FlowEditInterval    Flow = "edit_interval"
	FlowReturn          Flow = "return"
	FlowAddAttachments  Flow = "add_attachments"
)

type State string

const (
	StateIdle                     State = "idle"
	StateAwaitingDescription      State = "awaiting_description"
	StateAwaitingDate             State = "awaiting_date"
	StateAwaitingTime             State = "awaiting_time"
	StateAwaitingPeriodicChoice   State = "awaiting_periodic_choice"
	StateAwaitingPeriodicInterval State = "awaiting_periodic_interval"
	StateAwaitingAttachmentChoice State = "awaiting_attachment_choice"
	StateAwaitingAttachmentUpload State = "awaiting_attachment_upload"
	StateCreated                  State = "created"
	StateUpdated                  State = "updated"
)

func (s State) IsTerminal() bool {
	return s == StateCreated || s == StateUpdated
}

// Date is a calendar day without a time zone.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

func NewDate(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func ParseDate(value string) (Date, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

func (d Date) String() string {
	return d.At(0, 0, time.UTC).Format("2006-01-02")
}

type Draft struct {
	Description string                        `json:"description"`
	Date        c.Optional[Date]              `json:"date"`
	FireAt      c.Optional[time.Time]         `json:"fire_at"`
	Every       c.Optional[reminder.Interval] `json:"every"`
	ReminderID  c.Optional[reminder.ID]       `json:"reminder_id"`
	// HasPendingAttachment is set once at least one file was uploaded in the
	// current attachment step.
	HasPendingAttachment bool `json:"has_pending_attachment"`
}

type Session struct {
	OwnerID   user.ID   `json:"owner_id"`
	Flow      Flow      `json:"flow"`
	State     State     `json:"state"`
	Draft     Draft     `json:"draft"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(ownerID user.ID, flow Flow, state State, now time.Time) Session {
	return Session{OwnerID: ownerID, Flow: flow, State: state, UpdatedAt: now}
}

type Repository interface {
	Get(ctx context.Context, ownerID user.ID) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, ownerID user.ID) error
}
