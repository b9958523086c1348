package reminder

import (
	"context"
	"time"

	c "remindbot/internal/core/domain/common"
	"remindbot/internal/core/domain/user"
)

type CreateInput struct {
	OwnerID        user.ID
	Description    string
	FireAt         time.Time
	Every          c.Optional[Interval]
	HasAttachments bool
	CreatedAt      time.Time
}

type ReadOptions struct {
	OwnerID      user.ID
	IsDone       c.Optional[bool]
	FireAtBefore c.Optional[time.Time]
	OrderBy      OrderBy
	Limit        c.Optional[uint]
}

type UpdateInput struct {
	OwnerID                user.ID
	ID                     ID
	DoDescriptionUpdate    bool
	Description            string
	DoFireAtUpdate         bool
	FireAt                 time.Time
	DoEveryUpdate          bool
	Every                  c.Optional[Interval]
	DoIsDoneUpdate         bool
	IsDone                 bool
	DoHasAttachmentsUpdate bool
	HasAttachments         bool
}

type ReminderRepository interface {
	// Lock serializes writers of the owner's reminders and attachments until
	// the surrounding transaction ends.
	Lock(ctx context.Context, ownerID user.ID) error
	// Create allocates the next local id of the owner.
	Create(ctx context.Context, input CreateInput) (Reminder, error)
	GetByID(ctx context.Context, ownerID user.ID, id ID) (Reminder, error)
	Read(ctx context.Context, options ReadOptions) ([]Reminder, error)
	Update(ctx context.Context, input UpdateInput) (Reminder, error)
	Delete(ctx context.Context, ownerID user.ID, id ID) error
	// ReadDueOwners returns owners having at least one active reminder with
	// a fire time not after now.
	ReadDueOwners(ctx context.Context, now time.Time) ([]user.ID, error)
}
