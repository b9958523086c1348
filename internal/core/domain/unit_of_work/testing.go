package uow

import (
	"context"
	"sync"
)

// FakeUnitOfWork wraps a real unit of work and lets tests break it.
type FakeUnitOfWork struct {
	UnitOfWork
	BeginError        error
	CommitError       error
	WasCommitCalled   bool
	WasRollbackCalled bool
	lock              sync.Mutex
}

func NewFakeUnitOfWork(wrapped UnitOfWork) *FakeUnitOfWork {
	return &FakeUnitOfWork{UnitOfWork: wrapped}
}

func (u *FakeUnitOfWork) Begin(ctx context.Context) (Context, error) {
	u.lock.Lock()
	beginError := u.BeginError
	u.lock.Unlock()
	if beginError != nil {
		return nil, beginError
	}
	wrapped, err := u.UnitOfWork.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &fakeContext{Context: wrapped, uow: u}, nil
}

func (u *FakeUnitOfWork) SetBeginError(err error) {
	u.lock.Lock()
	defer u.lock.Unlock()
	u.BeginError = err
}

type fakeContext struct {
	Context
	uow *FakeUnitOfWork
}

func (c *fakeContext) Commit(ctx context.Context) error {
	c.uow.lock.Lock()
	c.uow.WasCommitCalled = true
	commitError := c.uow.CommitError
	c.uow.lock.Unlock()
	if commitError != nil {
		return commitError
	}
	return c.Context.Commit(ctx)
}

func (c *fakeContext) Rollback(ctx context.Context) error {
	c.uow.lock.Lock()
	c.uow.WasRollbackCalled = true
	c.uow.lock.Unlock()
	return c.Context.Rollback(ctx)
}
