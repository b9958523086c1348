package session

import (
	"context"
	"sync"

	"remindbot/internal/core/domain/user"
)

type FakeRepository struct {
	GetError    error
	SaveError   error
	DeleteError error
	sessions    map[user.ID]Session
	lock        sync.Mutex
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{sessions: make(map[user.ID]Session)}
}

func (r *FakeRepository) Get(ctx context.Context, ownerID user.ID) (Session, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.GetError != nil {
		return Session{}, r.GetError
	}
	s, ok := r.sessions[ownerID]
	if !ok {
		return Session{}, ErrSessionDoesNotExist
	}
	return s, nil
}

func (r *FakeRepository) Save(ctx context.Context, s Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.SaveError != nil {
		return r.SaveError
	}
	r.sessions[s.OwnerID] = s
	return nil
}

func (r *FakeRepository) Delete(ctx context.Context, ownerID user.ID) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.DeleteError != nil {
		return r.DeleteError
	}
	delete(r.sessions, ownerID)
	return nil
}
