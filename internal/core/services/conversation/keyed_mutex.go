package conversation

import (
	"sync"

	"remindbot/internal/core/domain/user"
)

type ownerMutex struct {
	sync.Mutex
	refs int
}

// keyedMutex serializes work per owner. Entries are dropped once nobody
// holds or waits for them.
type keyedMutex struct {
	locks map[user.ID]*ownerMutex
	lock  sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[user.ID]*ownerMutex)}
}

func (k *keyedMutex) Lock(ownerID user.ID) (unlock func()) {
	k.lock.Lock()
	m, ok := k.locks[ownerID]
	if !ok {
		m = &ownerMutex{}
		k.locks[ownerID] = m
	}
	m.refs++
	k.lock.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.lock.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, ownerID)
		}
		k.lock.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.lock.Lock()
	defer k.lock.Unlock()
	return len(k.locks)
}
