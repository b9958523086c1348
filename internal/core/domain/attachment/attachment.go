package attachment

import (
	"context"
	"errors"
	"strconv"
	"time"

	"remindbot/internal/core/domain/reminder"
	"remindbot/internal/core/domain/user"
)

var (
	ErrAttachmentDoesNotExist = errors.New("attachment does not exist")
	ErrUploadFailed           = errors.New("attachment upload failed")
	ErrDownloadFailed         = errors.New("attachment download failed")
	ErrBlobDoesNotExist       = errors.New("blob does not exist")
	ErrEmptyFile              = errors.New("file is empty")
)

type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseID(value string) (ID, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrAttachmentDoesNotExist
	}
	return ID(id), nil
}

// BlobRef is an opaque handle assigned by the blob storage.
type BlobRef string

type Attachment struct {
	ID         ID
	OwnerID    user.ID
	ReminderID reminder.ID
	BlobRef    BlobRef
	Name       string
	CreatedAt  time.Time
}

// File is an inbound file not yet stored anywhere.
type File struct {
	Name    string
	Content []byte
}

type CreateInput struct {
	OwnerID    user.ID
	ReminderID reminder.ID
	BlobRef    BlobRef
	Name       string
	CreatedAt  time.Time
}

type Repository interface {
	Create(ctx context.Context, input CreateInput) (Attachment, error)
	GetByID(ctx context.Context, ownerID user.ID, id ID) (Attachment, error)
	// Read returns attachments of the reminder in insertion order.
	Read(ctx context.Context, ownerID user.ID, reminderID reminder.ID) ([]Attachment, error)
	Delete(ctx context.Context, ownerID user.ID, id ID) error
	DeleteByReminderID(ctx context.Context, ownerID user.ID, reminderID reminder.ID) ([]Attachment, error)
	// CountByBlobRef counts rows of the owner that still reference the blob.
	CountByBlobRef(ctx context.Context, ownerID user.ID, ref BlobRef) (uint, error)
}

type BlobStorage interface {
	Upload(ctx context.Context, name string, content []byte) (BlobRef, error)
	Download(ctx context.Context, ref BlobRef) ([]byte, error)
	Delete(ctx context.Context, ref BlobRef) error
}
