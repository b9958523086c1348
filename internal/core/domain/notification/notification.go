package notification

import (
	"context"

	"remindbot/internal/core/domain/user"
)

type Option struct {
	Label string
	Data  string
}

// Keyboard is a grid of options, one slice per row.
type Keyboard [][]Option

func Row(options ...Option) []Option {
	return options
}

type Document struct {
	Name    string
	Content []byte
}

// Notifier delivers messages to an owner. Prompt calls only render the
// question; the answer comes back as a separate inbound event.
type Notifier interface {
	SendText(ctx context.Context, ownerID user.ID, text string) error
	SendDocument(ctx context.Context, ownerID user.ID, doc Document) error
	PromptChoice(ctx context.Context, ownerID user.ID, text string, keyboard Keyboard) error
	PromptFreeText(ctx context.Context, ownerID user.ID, text string) error
	PromptDate(ctx context.Context, ownerID user.ID, text string) error
}
