package attachments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remindbot/internal/core/domain/attachment"
	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/logging"
	"remindbot/internal/core/domain/reminder"
	uow "remindbot/internal/core/domain/unit_of_work"
	"remindbot/internal/core/domain/user"
)

// Manager owns attachment rows together with their remote blobs. Several
// rows of one owner may point to the same blob after duplication, a blob is
// removed only when its last row is gone.
type Manager interface {
	Add(ctx context.Context, ownerID user.ID, reminderID reminder.ID, file attachment.File) (attachment.Attachment, error)
	Remove(ctx context.Context, ownerID user.ID, id attachment.ID) (attachment.Attachment, error)
	Duplicate(ctx context.Context, tx uow.Context, ownerID user.ID, from, to reminder.ID) ([]attachment.Attachment, error)
	List(ctx context.Context, ownerID user.ID, reminderID reminder.ID) ([]attachment.Attachment, error)
	DeleteAll(ctx context.Context, ownerID user.ID, reminderID reminder.ID) error
	Detach(ctx context.Context, tx uow.Context, ownerID user.ID, reminderID reminder.ID) ([]attachment.BlobRef, error)
	PurgeBlobs(ctx context.Context, ownerID user.ID, refs []attachment.BlobRef)
	Download(ctx context.Context, att attachment.Attachment) ([]byte, error)
}

type manager struct {
	log         logging.Logger
	unitOfWork  uow.UnitOfWork
	storage     attachment.BlobStorage
	blobTimeout time.Duration
	now         func() time.Time
}

func New(
	log logging.Logger,
	unitOfWork uow.UnitOfWork,
	storage attachment.BlobStorage,
	blobTimeout time.Duration,
	now func() time.Time,
) Manager {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if unitOfWork == nil {
		panic(e.NewNilArgumentError("unitOfWork"))
	}
	if storage == nil {
		panic(e.NewNilArgumentError("storage"))
	}
	if now == nil {
		panic(e.NewNilArgumentError("now"))
	}
	return &manager{
		log:         log,
		unitOfWork:  unitOfWork,
		storage:     storage,
		blobTimeout: blobTimeout,
		now:         now,
	}
}

func (m *manager) Add(
	ctx context.Context,
	ownerID user.ID,
	reminderID reminder.ID,
	file attachment.File,
) (att attachment.Attachment, err error) {
	if len(file.Content) == 0 {
		return att, attachment.ErrEmptyFile
	}

	uploadCtx, cancel := context.WithTimeout(ctx, m.blobTimeout)
	ref, err := m.storage.Upload(uploadCtx, file.Name, file.Content)
	cancel()
	if err != nil {
		m.log.Warning(
			ctx,
			"Could not upload attachment.",
			logging.Entry("ownerID", ownerID),
			logging.Entry("reminderID", reminderID),
			logging.Entry("name", file.Name),
			logging.Entry("err", err),
		)
		return att, fmt.Errorf("%w: %v", attachment.ErrUploadFailed, err)
	}

	att, err = m.record(ctx, ownerID, reminderID, ref, file.Name)
	if err != nil {
		m.deleteBlob(ctx, ownerID, ref)
		return att, err
	}

	m.log.Info(
		ctx,
		"Attachment has been successfully added.",
		logging.Entry("ownerID", ownerID),
		logging.Entry("reminderID", reminderID),
		logging.Entry("attachmentID", att.ID),
	)
	return att, nil
}

func (m *manager) record(
	ctx context.Context,
	ownerID user.ID,
	reminderID reminder.ID,
	ref attachment.BlobRef,
	name string,
) (att attachment.Attachment, err error) {
	tx, err := m.unitOfWork.Begin(ctx)
	if err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
		return att, err
	}
	defer tx.Rollback(ctx)

	if err := tx.Reminders().Lock(ctx, ownerID); err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
		return att, err
	}
	att, err = tx.Attachments().Create(ctx, attachment.CreateInput{
		OwnerID:    ownerID,
		ReminderID: reminderID,
		BlobRef:    ref,
		Name:       name,
		CreatedAt:  m.now(),
	})
	if err != nil {
		if !errors.Is(err, reminder.ErrReminderDoesNotExist) {
			logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID), logging.Entry("reminderID", reminderID))
		}
		return att, err
	}
	_, err = tx.Reminders().Update(ctx, reminder.UpdateInput{
		OwnerID:                ownerID,
		ID:                     reminderID,
		DoHasAttachmentsUpdate: true,
		HasAttachments:         true,
	})
	if err != nil {
		if !errors.Is(err, reminder.ErrReminderDoesNotExist) {
			logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID), logging.Entry("reminderID", reminderID))
		}
		return att, err
	}
	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
		return att, err
	}
	return att, nil
}

func (m *manager) Remove(ctx context.Context, ownerID user.ID, id attachment.ID) (att attachment.Attachment, err error) {
	tx, err := m.unitOfWork.Begin(ctx)
	if err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
		return att, err
	}
	defer tx.Rollback(ctx)

	if err := tx.Reminders().Lock(ctx, ownerID); err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
		return att, err
	}
	att, err = tx.Attachments().GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, attachment.ErrAttachmentDoesNotExist) {
			m.log.Info(ctx, "Attachment not found.", logging.Entry("ownerID", ownerID), logging.Entry("attachmentID", id))
		} else {
			logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID), logging.Entry("attachmentID", id))
		}
		return att, err
	}
	if err := tx.Attachments().Delete(ctx, ownerID, id); err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID), logging.Entry("attachmentID", id))
		return att, err
	}
	rest, err := tx.Attachments().Read(ctx, ownerID, att.ReminderID)
	if err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID), logging.Entry("attachmentID", id))
		return att, err
	}
	if len(rest) == 0 {
		_, err = tx.Reminders().Update(ctx, reminder.UpdateInput{
			OwnerID:                ownerID,
			ID:                     att.ReminderID,
			DoHasAttachmentsUpdate: true,
			HasAttachments:         false,
		})
		if err != nil {
			logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID), logging.Entry("attachmentID", id))
			return att, err
		}
	}
	orphaned, err := m.orphaned(ctx, tx, ownerID, []attachment.BlobRef{att.BlobRef})
	if err != nil {
		return att, err
	}
	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
		return att, err
	}

	m.PurgeBlobs(ctx, ownerID, orphaned)
	m.log.Info(
		ctx,
		"Attachment has been successfully removed.",
		logging.Entry("ownerID", ownerID),
		logging.Entry("attachmentID", id),
	)
	return att, nil
}

func (m *manager) Duplicate(
	ctx context.Context,
	tx uow.Context,
	ownerID user.ID,
	from, to reminder.ID,
) ([]attachment.Attachment, error) {
	source, err := tx.Attachments().Read(ctx, ownerID, from)
	if err != nil {
		return nil, err
	}
	copies := make([]attachment.Attachment, 0, len(source))
	for _, att := range source {
		copied, err := tx.Attachments().Create(ctx, attachment.CreateInput{
			OwnerID:    ownerID,
			ReminderID: to,
			BlobRef:    att.BlobRef,
			Name:       att.Name,
			CreatedAt:  m.now(),
		})
		if err != nil {
			return nil, err
		}
		copies = append(copies, copied)
	}
	return copies, nil
}

func (m *manager) List(ctx context.Context, ownerID user.ID, reminderID reminder.ID) ([]attachment.Attachment, error) {
	tx, err := m.unitOfWork.Begin(ctx)
	if err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
		return nil, err
	}
	defer tx.Rollback(ctx)

	attachments, err := tx.Attachments().Read(ctx, ownerID, reminderID)
	if err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID), logging.Entry("reminderID", reminderID))
		return nil, err
	}
	return attachments, nil
}

func (m *manager) DeleteAll(ctx context.Context, ownerID user.ID, reminderID reminder.ID) error {
	tx, err := m.unitOfWork.Begin(ctx)
	if err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.Reminders().Lock(ctx, ownerID); err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
		return err
	}
	refs, err := m.Detach(ctx, tx, ownerID, reminderID)
	if err != nil {
		return err
	}
	_, err = tx.Reminders().Update(ctx, reminder.UpdateInput{
		OwnerID:                ownerID,
		ID:                     reminderID,
		DoHasAttachmentsUpdate: true,
		HasAttachments:         false,
	})
	if err != nil && !errors.Is(err, reminder.ErrReminderDoesNotExist) {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID), logging.Entry("reminderID", reminderID))
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID))
		return err
	}

	m.PurgeBlobs(ctx, ownerID, refs)
	return nil
}

func (m *manager) Detach(
	ctx context.Context,
	tx uow.Context,
	ownerID user.ID,
	reminderID reminder.ID,
) ([]attachment.BlobRef, error) {
	deleted, err := tx.Attachments().DeleteByReminderID(ctx, ownerID, reminderID)
	if err != nil {
		logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID), logging.Entry("reminderID", reminderID))
		return nil, err
	}
	refs := make([]attachment.BlobRef, 0, len(deleted))
	seen := make(map[attachment.BlobRef]struct{}, len(deleted))
	for _, att := range deleted {
		if _, ok := seen[att.BlobRef]; ok {
			continue
		}
		seen[att.BlobRef] = struct{}{}
		refs = append(refs, att.BlobRef)
	}
	return m.orphaned(ctx, tx, ownerID, refs)
}

// orphaned keeps the refs that no remaining row of the owner points to.
func (m *manager) orphaned(
	ctx context.Context,
	tx uow.Context,
	ownerID user.ID,
	refs []attachment.BlobRef,
) ([]attachment.BlobRef, error) {
	result := make([]attachment.BlobRef, 0, len(refs))
	for _, ref := range refs {
		count, err := tx.Attachments().CountByBlobRef(ctx, ownerID, ref)
		if err != nil {
			logging.Error(ctx, m.log, err, logging.Entry("ownerID", ownerID), logging.Entry("ref", ref))
			return nil, err
		}
		if count == 0 {
			result = append(result, ref)
		}
	}
	return result, nil
}

func (m *manager) PurgeBlobs(ctx context.Context, ownerID user.ID, refs []attachment.BlobRef) {
	for _, ref := range refs {
		m.deleteBlob(ctx, ownerID, ref)
	}
}

func (m *manager) deleteBlob(ctx context.Context, ownerID user.ID, ref attachment.BlobRef) {
	deleteCtx, cancel := context.WithTimeout(ctx, m.blobTimeout)
	defer cancel()
	if err := m.storage.Delete(deleteCtx, ref); err != nil {
		m.log.Warning(
			ctx,
			"Could not delete blob, it is left orphaned.",
			logging.Entry("ownerID", ownerID),
			logging.Entry("ref", ref),
			logging.Entry("err", err),
		)
	}
}

func (m *manager) Download(ctx context.Context, att attachment.Attachment) ([]byte, error) {
	downloadCtx, cancel := context.WithTimeout(ctx, m.blobTimeout)
	defer cancel()
	content, err := m.storage.Download(downloadCtx, att.BlobRef)
	if err != nil {
		m.log.Warning(
			ctx,
			"Could not download attachment.",
			logging.Entry("ownerID", att.OwnerID),
			logging.Entry("attachmentID", att.ID),
			logging.Entry("err", err),
		)
		return nil, fmt.Errorf("%w: %v", attachment.ErrDownloadFailed, err)
	}
	return content, nil
}
