package attachment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	domain "remindbot/internal/core/domain/attachment"
	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/reminder"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/db"
)

const attachmentColumns = `id, owner_id, reminder_id, blob_ref, name, created_at`

const createAttachmentQuery = `
INSERT INTO attachment (owner_id, reminder_id, blob_ref, name, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + attachmentColumns

const getAttachmentByIDQuery = `
SELECT ` + attachmentColumns + `
FROM attachment
WHERE owner_id = $1 AND id = $2`

const readAttachmentsQuery = `
SELECT ` + attachmentColumns + `
FROM attachment
WHERE owner_id = $1 AND reminder_id = $2
ORDER BY id ASC`

const deleteAttachmentQuery = `DELETE FROM attachment WHERE owner_id = $1 AND id = $2`

const deleteAttachmentsByReminderIDQuery = `
WITH deleted AS (
    DELETE FROM attachment
    WHERE owner_id = $1 AND reminder_id = $2
    RETURNING ` + attachmentColumns + `
)
SELECT ` + attachmentColumns + ` FROM deleted ORDER BY id ASC`

const countAttachmentsByBlobRefQuery = `
SELECT count(*)
FROM attachment
WHERE owner_id = $1 AND blob_ref = $2`

type PgxAttachmentRepository struct {
	db db.DBTX
}

func NewPgxAttachmentRepository(db db.DBTX) *PgxAttachmentRepository {
	if db == nil {
		panic(e.NewNilArgumentError("db"))
	}
	return &PgxAttachmentRepository{db: db}
}

func (r *PgxAttachmentRepository) Create(
	ctx context.Context,
	input domain.CreateInput,
) (att domain.Attachment, err error) {
	row := r.db.QueryRow(
		ctx,
		createAttachmentQuery,
		int64(input.OwnerID),
		int64(input.ReminderID),
		string(input.BlobRef),
		input.Name,
		input.CreatedAt.UTC(),
	)
	att, err = scanAttachment(row)
	if db.IsConstraintError(err, db.PG_FOREIGN_KEY_CONSTRAINT_ERR_CODE) {
		return att, reminder.ErrReminderDoesNotExist
	}
	return att, err
}

func (r *PgxAttachmentRepository) GetByID(
	ctx context.Context,
	ownerID user.ID,
	id domain.ID,
) (att domain.Attachment, err error) {
	row := r.db.QueryRow(ctx, getAttachmentByIDQuery, int64(ownerID), int64(id))
	att, err = scanAttachment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return att, domain.ErrAttachmentDoesNotExist
	}
	return att, err
}

func (r *PgxAttachmentRepository) Read(
	ctx context.Context,
	ownerID user.ID,
	reminderID reminder.ID,
) ([]domain.Attachment, error) {
	rows, err := r.db.Query(ctx, readAttachmentsQuery, int64(ownerID), int64(reminderID))
	if err != nil {
		return nil, err
	}
	return collectAttachments(rows)
}

func (r *PgxAttachmentRepository) Delete(ctx context.Context, ownerID user.ID, id domain.ID) error {
	tag, err := r.db.Exec(ctx, deleteAttachmentQuery, int64(ownerID), int64(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttachmentDoesNotExist
	}
	return nil
}

func (r *PgxAttachmentRepository) DeleteByReminderID(
	ctx context.Context,
	ownerID user.ID,
	reminderID reminder.ID,
) ([]domain.Attachment, error) {
	rows, err := r.db.Query(ctx, deleteAttachmentsByReminderIDQuery, int64(ownerID), int64(reminderID))
	if err != nil {
		return nil, err
	}
	return collectAttachments(rows)
}

func (r *PgxAttachmentRepository) CountByBlobRef(
	ctx context.Context,
	ownerID user.ID,
	ref domain.BlobRef,
) (uint, error) {
	var count int64
	err := r.db.QueryRow(ctx, countAttachmentsByBlobRefQuery, int64(ownerID), string(ref)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return uint(count), nil
}

func collectAttachments(rows pgx.Rows) ([]domain.Attachment, error) {
	defer rows.Close()
	attachments := make([]domain.Attachment, 0)
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return attachments, err
		}
		attachments = append(attachments, att)
	}
	return attachments, rows.Err()
}

func scanAttachment(row pgx.Row) (att domain.Attachment, err error) {
	var (
		id         int64
		ownerID    int64
		reminderID int64
		blobRef    string
	)
	err = row.Scan(&id, &ownerID, &reminderID, &blobRef, &att.Name, &att.CreatedAt)
	if err != nil {
		return att, err
	}
	att.ID = domain.ID(id)
	att.OwnerID = user.ID(ownerID)
	att.ReminderID = reminder.ID(reminderID)
	att.BlobRef = domain.BlobRef(blobRef)
	att.CreatedAt = att.CreatedAt.UTC()
	return att, nil
}
