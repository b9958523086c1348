// Package memory is a process-local store with the same transactional
// semantics as the PostgreSQL adapters. It backs tests and the dev mode.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"remindbot/internal/core/domain/attachment"
	"remindbot/internal/core/domain/reminder"
	uow "remindbot/internal/core/domain/unit_of_work"
	"remindbot/internal/core/domain/user"
)

var ErrTxDone = errors.New("transaction has already been committed or rolled back")

type ownerData struct {
	reminders   map[reminder.ID]reminder.Reminder
	attachments map[attachment.ID]attachment.Attachment
}

func newOwnerData() *ownerData {
	return &ownerData{
		reminders:   make(map[reminder.ID]reminder.Reminder),
		attachments: make(map[attachment.ID]attachment.Attachment),
	}
}

func (d *ownerData) clone() *ownerData {
	cloned := &ownerData{
		reminders:   make(map[reminder.ID]reminder.Reminder, len(d.reminders)),
		attachments: make(map[attachment.ID]attachment.Attachment, len(d.attachments)),
	}
	for id, rem := range d.reminders {
		cloned.reminders[id] = rem
	}
	for id, att := range d.attachments {
		cloned.attachments[id] = att
	}
	return cloned
}

// Storage keeps committed data per owner. Committed ownerData values are
// never mutated, a transaction replaces them on commit.
type Storage struct {
	owners        map[user.ID]*ownerData
	locks         map[user.ID]chan struct{}
	attachmentSeq int64
	lock          sync.Mutex
}

func NewStorage() *Storage {
	return &Storage{
		owners: make(map[user.ID]*ownerData),
		locks:  make(map[user.ID]chan struct{}),
	}
}

func (s *Storage) ownerLock(ownerID user.ID) chan struct{} {
	s.lock.Lock()
	defer s.lock.Unlock()
	l, ok := s.locks[ownerID]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[ownerID] = l
	}
	return l
}

func (s *Storage) committed(ownerID user.ID) *ownerData {
	s.lock.Lock()
	defer s.lock.Unlock()
	d, ok := s.owners[ownerID]
	if !ok {
		return newOwnerData()
	}
	return d
}

func (s *Storage) ownerIDs() []user.ID {
	s.lock.Lock()
	defer s.lock.Unlock()
	ids := make([]user.ID, 0, len(s.owners))
	for id := range s.owners {
		ids = append(ids, id)
	}
	return ids
}

func (s *Storage) nextAttachmentID() attachment.ID {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.attachmentSeq++
	return attachment.ID(s.attachmentSeq)
}

type UnitOfWork struct {
	storage *Storage
}

func NewUnitOfWork(storage *Storage) *UnitOfWork {
	if storage == nil {
		storage = NewStorage()
	}
	return &UnitOfWork{storage: storage}
}

func (u *UnitOfWork) Begin(ctx context.Context) (uow.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newTx(u.storage), nil
}

type tx struct {
	storage *Storage
	held    map[user.ID]chan struct{}
	staged  map[user.ID]*ownerData
	done    bool
	lock    sync.Mutex
}

func newTx(storage *Storage) *tx {
	return &tx{
		storage: storage,
		held:    make(map[user.ID]chan struct{}),
		staged:  make(map[user.ID]*ownerData),
	}
}

func (t *tx) Commit(ctx context.Context) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.done {
		return ErrTxDone
	}
	t.storage.lock.Lock()
	for ownerID, data := range t.staged {
		t.storage.owners[ownerID] = data
	}
	t.storage.lock.Unlock()
	t.finish()
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *tx) finish() {
	t.done = true
	t.staged = nil
	for ownerID, l := range t.held {
		<-l
		delete(t.held, ownerID)
	}
}

func (t *tx) Reminders() reminder.ReminderRepository {
	return &reminderRepository{tx: t}
}

func (t *tx) Attachments() attachment.Repository {
	return &attachmentRepository{tx: t}
}

func (t *tx) acquire(ctx context.Context, ownerID user.ID) error {
	if t.done {
		return ErrTxDone
	}
	if _, ok := t.held[ownerID]; ok {
		return nil
	}
	l := t.storage.ownerLock(ownerID)
	select {
	case l <- struct{}{}:
		t.held[ownerID] = l
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// view returns data visible to the transaction. Callers must not mutate it.
func (t *tx) view(ownerID user.ID) (*ownerData, error) {
	if t.done {
		return nil, ErrTxDone
	}
	if d, ok := t.staged[ownerID]; ok {
		return d, nil
	}
	return t.storage.committed(ownerID), nil
}

// stage locks the owner and returns a private copy of its data.
func (t *tx) stage(ctx context.Context, ownerID user.ID) (*ownerData, error) {
	if err := t.acquire(ctx, ownerID); err != nil {
		return nil, err
	}
	if d, ok := t.staged[ownerID]; ok {
		return d, nil
	}
	d := t.storage.committed(ownerID).clone()
	t.staged[ownerID] = d
	return d, nil
}

type reminderRepository struct {
	tx *tx
}

func (r *reminderRepository) Lock(ctx context.Context, ownerID user.ID) error {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	return r.tx.acquire(ctx, ownerID)
}

func (r *reminderRepository) Create(ctx context.Context, input reminder.CreateInput) (reminder.Reminder, error) {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	d, err := r.tx.stage(ctx, input.OwnerID)
	if err != nil {
		return reminder.Reminder{}, err
	}
	var maxID reminder.ID
	for id := range d.reminders {
		if id > maxID {
			maxID = id
		}
	}
	rem := reminder.Reminder{
		OwnerID:        input.OwnerID,
		ID:             maxID + 1,
		Description:    input.Description,
		FireAt:         input.FireAt.UTC(),
		HasAttachments: input.HasAttachments,
		Every:          input.Every,
		CreatedAt:      input.CreatedAt.UTC(),
	}
	if err := rem.Validate(); err != nil {
		return reminder.Reminder{}, err
	}
	d.reminders[rem.ID] = rem
	return rem, nil
}

func (r *reminderRepository) GetByID(ctx context.Context, ownerID user.ID, id reminder.ID) (reminder.Reminder, error) {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	d, err := r.tx.view(ownerID)
	if err != nil {
		return reminder.Reminder{}, err
	}
	rem, ok := d.reminders[id]
	if !ok {
		return reminder.Reminder{}, reminder.ErrReminderDoesNotExist
	}
	return rem, nil
}

func (r *reminderRepository) Read(ctx context.Context, options reminder.ReadOptions) ([]reminder.Reminder, error) {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	d, err := r.tx.view(options.OwnerID)
	if err != nil {
		return nil, err
	}
	reminders := make([]reminder.Reminder, 0)
	for _, rem := range d.reminders {
		if options.IsDone.IsPresent && rem.IsDone != options.IsDone.Value {
			continue
		}
		if options.FireAtBefore.IsPresent && rem.FireAt.After(options.FireAtBefore.Value) {
			continue
		}
		reminders = append(reminders, rem)
	}
	sortReminders(reminders, options.OrderBy)
	if options.Limit.IsPresent && uint(len(reminders)) > options.Limit.Value {
		reminders = reminders[:options.Limit.Value]
	}
	return reminders, nil
}

func sortReminders(reminders []reminder.Reminder, orderBy reminder.OrderBy) {
	sort.Slice(reminders, func(i, j int) bool {
		a, b := reminders[i], reminders[j]
		switch orderBy {
		case reminder.OrderByFireAtAsc:
			if !a.FireAt.Equal(b.FireAt) {
				return a.FireAt.Before(b.FireAt)
			}
		case reminder.OrderByFireAtDesc:
			if !a.FireAt.Equal(b.FireAt) {
				return a.FireAt.After(b.FireAt)
			}
		}
		return a.ID < b.ID
	})
}

func (r *reminderRepository) Update(ctx context.Context, input reminder.UpdateInput) (reminder.Reminder, error) {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	d, err := r.tx.stage(ctx, input.OwnerID)
	if err != nil {
		return reminder.Reminder{}, err
	}
	rem, ok := d.reminders[input.ID]
	if !ok {
		return reminder.Reminder{}, reminder.ErrReminderDoesNotExist
	}
	if input.DoDescriptionUpdate {
		rem.Description = input.Description
	}
	if input.DoFireAtUpdate {
		rem.FireAt = input.FireAt.UTC()
	}
	if input.DoEveryUpdate {
		rem.Every = input.Every
	}
	if input.DoIsDoneUpdate {
		rem.IsDone = input.IsDone
	}
	if input.DoHasAttachmentsUpdate {
		rem.HasAttachments = input.HasAttachments
	}
	if err := rem.Validate(); err != nil {
		return reminder.Reminder{}, err
	}
	d.reminders[rem.ID] = rem
	return rem, nil
}

func (r *reminderRepository) Delete(ctx context.Context, ownerID user.ID, id reminder.ID) error {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	d, err := r.tx.stage(ctx, ownerID)
	if err != nil {
		return err
	}
	if _, ok := d.reminders[id]; !ok {
		return reminder.ErrReminderDoesNotExist
	}
	delete(d.reminders, id)
	for attachmentID, att := range d.attachments {
		if att.ReminderID == id {
			delete(d.attachments, attachmentID)
		}
	}
	return nil
}

func (r *reminderRepository) ReadDueOwners(ctx context.Context, now time.Time) ([]user.ID, error) {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	if r.tx.done {
		return nil, ErrTxDone
	}
	owners := make([]user.ID, 0)
	for _, ownerID := range r.tx.storage.ownerIDs() {
		d, err := r.tx.view(ownerID)
		if err != nil {
			return nil, err
		}
		for _, rem := range d.reminders {
			if rem.IsDue(now) {
				owners = append(owners, ownerID)
				break
			}
		}
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}

type attachmentRepository struct {
	tx *tx
}

func (r *attachmentRepository) Create(ctx context.Context, input attachment.CreateInput) (attachment.Attachment, error) {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	d, err := r.tx.stage(ctx, input.OwnerID)
	if err != nil {
		return attachment.Attachment{}, err
	}
	if _, ok := d.reminders[input.ReminderID]; !ok {
		return attachment.Attachment{}, reminder.ErrReminderDoesNotExist
	}
	att := attachment.Attachment{
		ID:         r.tx.storage.nextAttachmentID(),
		OwnerID:    input.OwnerID,
		ReminderID: input.ReminderID,
		BlobRef:    input.BlobRef,
		Name:       input.Name,
		CreatedAt:  input.CreatedAt.UTC(),
	}
	d.attachments[att.ID] = att
	return att, nil
}

func (r *attachmentRepository) GetByID(ctx context.Context, ownerID user.ID, id attachment.ID) (attachment.Attachment, error) {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	d, err := r.tx.view(ownerID)
	if err != nil {
		return attachment.Attachment{}, err
	}
	att, ok := d.attachments[id]
	if !ok {
		return attachment.Attachment{}, attachment.ErrAttachmentDoesNotExist
	}
	return att, nil
}

func (r *attachmentRepository) Read(
	ctx context.Context,
	ownerID user.ID,
	reminderID reminder.ID,
) ([]attachment.Attachment, error) {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	d, err := r.tx.view(ownerID)
	if err != nil {
		return nil, err
	}
	return selectAttachments(d, reminderID), nil
}

func selectAttachments(d *ownerData, reminderID reminder.ID) []attachment.Attachment {
	attachments := make([]attachment.Attachment, 0)
	for _, att := range d.attachments {
		if att.ReminderID == reminderID {
			attachments = append(attachments, att)
		}
	}
	sort.Slice(attachments, func(i, j int) bool { return attachments[i].ID < attachments[j].ID })
	return attachments
}

func (r *attachmentRepository) Delete(ctx context.Context, ownerID user.ID, id attachment.ID) error {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	d, err := r.tx.stage(ctx, ownerID)
	if err != nil {
		return err
	}
	if _, ok := d.attachments[id]; !ok {
		return attachment.ErrAttachmentDoesNotExist
	}
	delete(d.attachments, id)
	return nil
}

func (r *attachmentRepository) DeleteByReminderID(
	ctx context.Context,
	ownerID user.ID,
	reminderID reminder.ID,
) ([]attachment.Attachment, error) {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	d, err := r.tx.stage(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	deleted := selectAttachments(d, reminderID)
	for _, att := range deleted {
		delete(d.attachments, att.ID)
	}
	return deleted, nil
}

func (r *attachmentRepository) CountByBlobRef(
	ctx context.Context,
	ownerID user.ID,
	ref attachment.BlobRef,
) (uint, error) {
	r.tx.lock.Lock()
	defer r.tx.lock.Unlock()
	d, err := r.tx.view(ownerID)
	if err != nil {
		return 0, err
	}
	var count uint
	for _, att := range d.attachments {
		if att.BlobRef == ref {
			count++
		}
	}
	return count, nil
}
