package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v9"

	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/session"
	"remindbot/internal/core/domain/user"
)

func Key(ownerID user.ID) string {
	return fmt.Sprintf("session::%d", ownerID)
}

// Redis keeps one JSON encoded session per owner. Every save refreshes the
// TTL, so abandoned dialogs expire on their own.
type Redis struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRedis(redisClient *redis.Client, ttl time.Duration) *Redis {
	if redisClient == nil {
		panic(e.NewNilArgumentError("redisClient"))
	}
	return &Redis{redisClient: redisClient, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, ownerID user.ID) (s session.Session, err error) {
	raw, err := r.redisClient.Get(ctx, Key(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s, session.ErrSessionDoesNotExist
	}
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(raw, &s)
	return s, err
}

func (r *Redis) Save(ctx context.Context, s session.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.redisClient.Set(ctx, Key(s.OwnerID), raw, r.ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, ownerID user.ID) error {
	return r.redisClient.Del(ctx, Key(ownerID)).Err()
}

type memoryItem struct {
	session   session.Session
	expiresAt time.Time
}

type Memory struct {
	ttl   time.Duration
	now   func() time.Time
	items map[user.ID]memoryItem
	lock  sync.RWMutex
}

func NewMemory(ttl time.Duration, now func() time.Time) *Memory {
	if now == nil {
		panic(e.NewNilArgumentError("now"))
	}
	return &Memory{ttl: ttl, now: now, items: make(map[user.ID]memoryItem)}
}

func (m *Memory) Get(ctx context.Context, ownerID user.ID) (session.Session, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	item, ok := m.items[ownerID]
	if !ok || (m.ttl > 0 && !m.now().Before(item.expiresAt)) {
		return session.Session{}, session.ErrSessionDoesNotExist
	}
	return item.session, nil
}

func (m *Memory) Save(ctx context.Context, s session.Session) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.items[s.OwnerID] = memoryItem{session: s, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Delete(ctx context.Context, ownerID user.ID) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.items, ownerID)
	return nil
}
