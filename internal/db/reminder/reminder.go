package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	c "remindbot/internal/core/domain/common"
	e "remindbot/internal/core/domain/errors"
	domain "remindbot/internal/core/domain/reminder"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/db"
)

const reminderColumns = `owner_id, id, description, fire_at, is_done, has_attachments, every, created_at`

const lockOwnerQuery = `SELECT pg_advisory_xact_lock($1)`

const createReminderQuery = `
INSERT INTO reminder (owner_id, id, description, fire_at, is_done, has_attachments, every, created_at)
SELECT $1::bigint, COALESCE(MAX(id), 0) + 1, $2::text, $3::timestamptz, FALSE, $4::boolean, $5::interval, $6::timestamptz
FROM reminder
WHERE owner_id = $1
RETURNING ` + reminderColumns

const getReminderByIDQuery = `
SELECT ` + reminderColumns + `
FROM reminder
WHERE owner_id = $1 AND id = $2`

const readRemindersQuery = `
SELECT ` + reminderColumns + `
FROM reminder
WHERE
    owner_id = $1
    AND ($2::boolean OR is_done = $3)
    AND ($4::boolean OR fire_at <= $5)
ORDER BY
    CASE WHEN $6::boolean THEN fire_at END ASC,
    CASE WHEN $7::boolean THEN fire_at END DESC,
    id ASC
LIMIT CASE WHEN $8::boolean THEN NULL ELSE $9::bigint END`

const updateReminderQuery = `
UPDATE reminder SET
    description = CASE WHEN $3::boolean THEN $4 ELSE description END,
    fire_at = CASE WHEN $5::boolean THEN $6 ELSE fire_at END,
    every = CASE WHEN $7::boolean THEN $8 ELSE every END,
    is_done = CASE WHEN $9::boolean THEN $10 ELSE is_done END,
    has_attachments = CASE WHEN $11::boolean THEN $12 ELSE has_attachments END
WHERE owner_id = $1 AND id = $2
RETURNING ` + reminderColumns

const deleteReminderQuery = `DELETE FROM reminder WHERE owner_id = $1 AND id = $2`

const readDueOwnersQuery = `
SELECT DISTINCT owner_id
FROM reminder
WHERE NOT is_done AND fire_at <= $1
ORDER BY owner_id`

type PgxReminderRepository struct {
	db db.DBTX
}

func NewPgxReminderRepository(db db.DBTX) *PgxReminderRepository {
	if db == nil {
		panic(e.NewNilArgumentError("db"))
	}
	return &PgxReminderRepository{db: db}
}

func (r *PgxReminderRepository) Lock(ctx context.Context, ownerID user.ID) error {
	// The lock is released when the transaction ends, so the method
	// works only within a DB transaction.
	_, err := r.db.Exec(ctx, lockOwnerQuery, int64(ownerID))
	return err
}

func (r *PgxReminderRepository) Create(
	ctx context.Context,
	input domain.CreateInput,
) (rem domain.Reminder, err error) {
	row := r.db.QueryRow(
		ctx,
		createReminderQuery,
		int64(input.OwnerID),
		input.Description,
		input.FireAt.UTC(),
		input.HasAttachments,
		encodeInterval(input.Every),
		input.CreatedAt.UTC(),
	)
	rem, err = scanReminder(row)
	if db.IsConstraintError(err, db.PG_UNIQUE_CONSTRAINT_ERR_CODE) {
		return rem, domain.ErrReminderConflict
	}
	if err != nil {
		return rem, err
	}
	return rem, rem.Validate()
}

func (r *PgxReminderRepository) GetByID(
	ctx context.Context,
	ownerID user.ID,
	id domain.ID,
) (rem domain.Reminder, err error) {
	row := r.db.QueryRow(ctx, getReminderByIDQuery, int64(ownerID), int64(id))
	rem, err = scanReminder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rem, domain.ErrReminderDoesNotExist
		}
		return rem, err
	}
	return rem, nil
}

func (r *PgxReminderRepository) Read(
	ctx context.Context,
	options domain.ReadOptions,
) (reminders []domain.Reminder, err error) {
	rows, err := r.db.Query(
		ctx,
		readRemindersQuery,
		int64(options.OwnerID),
		!options.IsDone.IsPresent,
		options.IsDone.Value,
		!options.FireAtBefore.IsPresent,
		options.FireAtBefore.Value,
		options.OrderBy == domain.OrderByFireAtAsc,
		options.OrderBy == domain.OrderByFireAtDesc,
		!options.Limit.IsPresent,
		int64(options.Limit.Value),
	)
	if err != nil {
		return reminders, err
	}
	defer rows.Close()

	reminders = make([]domain.Reminder, 0)
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return reminders, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func (r *PgxReminderRepository) Update(
	ctx context.Context,
	input domain.UpdateInput,
) (rem domain.Reminder, err error) {
	var fireAt time.Time
	if input.DoFireAtUpdate {
		fireAt = input.FireAt.UTC()
	}
	row := r.db.QueryRow(
		ctx,
		updateReminderQuery,
		int64(input.OwnerID),
		int64(input.ID),
		input.DoDescriptionUpdate,
		input.Description,
		input.DoFireAtUpdate,
		fireAt,
		input.DoEveryUpdate,
		encodeInterval(input.Every),
		input.DoIsDoneUpdate,
		input.IsDone,
		input.DoHasAttachmentsUpdate,
		input.HasAttachments,
	)
	rem, err = scanReminder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rem, domain.ErrReminderDoesNotExist
		}
		return rem, err
	}
	return rem, rem.Validate()
}

func (r *PgxReminderRepository) Delete(
	ctx context.Context,
	ownerID user.ID,
	id domain.ID,
) error {
	tag, err := r.db.Exec(ctx, deleteReminderQuery, int64(ownerID), int64(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReminderDoesNotExist
	}
	return nil
}

func (r *PgxReminderRepository) ReadDueOwners(ctx context.Context, now time.Time) ([]user.ID, error) {
	rows, err := r.db.Query(ctx, readDueOwnersQuery, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make([]user.ID, 0)
	for rows.Next() {
		var ownerID int64
		if err := rows.Scan(&ownerID); err != nil {
			return owners, err
		}
		owners = append(owners, user.ID(ownerID))
	}
	return owners, rows.Err()
}

func scanReminder(row pgx.Row) (rem domain.Reminder, err error) {
	var (
		ownerID int64
		id      int64
		every   pgtype.Interval
	)
	err = row.Scan(
		&ownerID,
		&id,
		&rem.Description,
		&rem.FireAt,
		&rem.IsDone,
		&rem.HasAttachments,
		&every,
		&rem.CreatedAt,
	)
	if err != nil {
		return rem, err
	}
	rem.OwnerID = user.ID(ownerID)
	rem.ID = domain.ID(id)
	rem.FireAt = rem.FireAt.UTC()
	rem.CreatedAt = rem.CreatedAt.UTC()
	rem.Every, err = decodeInterval(every)
	return rem, err
}

func encodeInterval(every c.Optional[domain.Interval]) pgtype.Interval {
	if !every.IsPresent {
		return pgtype.Interval{Status: pgtype.Null}
	}
	return pgtype.Interval{
		Days:         int32(every.Value.Days),
		Microseconds: every.Value.Clock().Microseconds(),
		Status:       pgtype.Present,
	}
}

func decodeInterval(every pgtype.Interval) (c.Optional[domain.Interval], error) {
	if every.Status != pgtype.Present {
		return c.None[domain.Interval](), nil
	}
	if every.Months != 0 || every.Days < 0 || every.Microseconds < 0 {
		return c.None[domain.Interval](), e.NewInvalidStateErrorf(
			"unsupported interval: months %d, days %d, microseconds %d",
			every.Months,
			every.Days,
			every.Microseconds,
		)
	}
	clock := time.Duration(every.Microseconds) * time.Microsecond
	interval := domain.Interval{
		Days:    uint32(every.Days),
		Hours:   uint32(clock / time.Hour),
		Minutes: uint32((clock % time.Hour) / time.Minute),
	}
	return c.Some(interval), interval.Validate()
}
