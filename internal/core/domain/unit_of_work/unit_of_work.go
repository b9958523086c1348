package uow

import (
	"context"

	"remindbot/internal/core/domain/attachment"
	"remindbot/internal/core/domain/reminder"
)

type Context interface {
	Rollback(ctx context.Context) error
	Commit(ctx context.Context) error

	Reminders() reminder.ReminderRepository
	Attachments() attachment.Repository
}

type UnitOfWork interface {
	Begin(ctx context.Context) (Context, error)
}
