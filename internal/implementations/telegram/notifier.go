package telegram

import (
	"context"
	"time"

	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/notification"
	"remindbot/internal/core/domain/user"
)

// Notifier sends to the private chat of the owner, whose id equals the
// Telegram user id.
type Notifier struct {
	client   *Client
	location *time.Location
	now      func() time.Time
}

func NewNotifier(client *Client, location *time.Location, now func() time.Time) *Notifier {
	if client == nil {
		panic(e.NewNilArgumentError("client"))
	}
	if location == nil {
		panic(e.NewNilArgumentError("location"))
	}
	if now == nil {
		panic(e.NewNilArgumentError("now"))
	}
	return &Notifier{client: client, location: location, now: now}
}

func (n *Notifier) SendText(ctx context.Context, ownerID user.ID, text string) error {
	return n.client.SendMessage(ctx, int64(ownerID), text, nil)
}

func (n *Notifier) SendDocument(ctx context.Context, ownerID user.ID, doc notification.Document) error {
	return n.client.SendDocument(ctx, int64(ownerID), doc.Name, doc.Content)
}

func (n *Notifier) PromptChoice(
	ctx context.Context,
	ownerID user.ID,
	text string,
	keyboard notification.Keyboard,
) error {
	return n.client.SendMessage(ctx, int64(ownerID), text, InlineKeyboard(keyboard))
}

func (n *Notifier) PromptFreeText(ctx context.Context, ownerID user.ID, text string) error {
	return n.client.SendMessage(ctx, int64(ownerID), text, nil)
}

func (n *Notifier) PromptDate(ctx context.Context, ownerID user.ID, text string) error {
	return n.client.SendMessage(ctx, int64(ownerID), text, Calendar(n.now().In(n.location)))
}

func InlineKeyboard(keyboard notification.Keyboard) InlineKeyboardMarkup {
	rows := make([][]InlineKeyboardButton, 0, len(keyboard))
	for _, options := range keyboard {
		row := make([]InlineKeyboardButton, 0, len(options))
		for _, option := range options {
			row = append(row, InlineKeyboardButton{Text: option.Label, CallbackData: option.Data})
		}
		rows = append(rows, row)
	}
	return InlineKeyboardMarkup{InlineKeyboard: rows}
}
