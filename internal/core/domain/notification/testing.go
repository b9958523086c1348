package notification

import (
	"context"
	"sync"

	"remindbot/internal/core/domain/user"
)

type MessageKind string

const (
	KindText     MessageKind = "text"
	KindDocument MessageKind = "document"
	KindChoice   MessageKind = "choice"
	KindFreeText MessageKind = "free_text"
	KindDate     MessageKind = "date"
)

type FakeMessage struct {
	OwnerID  user.ID
	Kind     MessageKind
	Text     string
	Document Document
	Keyboard Keyboard
}

type FakeNotifier struct {
	SendTextError     error
	SendDocumentError error
	PromptError       error
	messages          []FakeMessage
	lock              sync.RWMutex
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (n *FakeNotifier) record(m FakeMessage) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.messages = append(n.messages, m)
}

func (n *FakeNotifier) SendText(ctx context.Context, ownerID user.ID, text string) error {
	if n.SendTextError != nil {
		return n.SendTextError
	}
	n.record(FakeMessage{OwnerID: ownerID, Kind: KindText, Text: text})
	return nil
}

func (n *FakeNotifier) SendDocument(ctx context.Context, ownerID user.ID, doc Document) error {
	if n.SendDocumentError != nil {
		return n.SendDocumentError
	}
	n.record(FakeMessage{OwnerID: ownerID, Kind: KindDocument, Document: doc})
	return nil
}

func (n *FakeNotifier) PromptChoice(ctx context.Context, ownerID user.ID, text string, keyboard Keyboard) error {
	if n.PromptError != nil {
		return n.PromptError
	}
	n.record(FakeMessage{OwnerID: ownerID, Kind: KindChoice, Text: text, Keyboard: keyboard})
	return nil
}

func (n *FakeNotifier) PromptFreeText(ctx context.Context, ownerID user.ID, text string) error {
	if n.PromptError != nil {
		return n.PromptError
	}
	n.record(FakeMessage{OwnerID: ownerID, Kind: KindFreeText, Text: text})
	return nil
}

func (n *FakeNotifier) PromptDate(ctx context.Context, ownerID user.ID, text string) error {
	if n.PromptError != nil {
		return n.PromptError
	}
	n.record(FakeMessage{OwnerID: ownerID, Kind: KindDate, Text: text})
	return nil
}

func (n *FakeNotifier) Messages() []FakeMessage {
	n.lock.RLock()
	defer n.lock.RUnlock()
	return append([]FakeMessage(nil), n.messages...)
}

func (n *FakeNotifier) MessagesOf(ownerID user.ID) []FakeMessage {
	n.lock.RLock()
	defer n.lock.RUnlock()
	result := make([]FakeMessage, 0)
	for _, m := range n.messages {
		if m.OwnerID == ownerID {
			result = append(result, m)
		}
	}
	return result
}

func (n *FakeNotifier) Last() (FakeMessage, bool) {
	n.lock.RLock()
	defer n.lock.RUnlock()
	if len(n.messages) == 0 {
		return FakeMessage{}, false
	}
	return n.messages[len(n.messages)-1], true
}

func (n *FakeNotifier) Reset() {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.messages = nil
}
