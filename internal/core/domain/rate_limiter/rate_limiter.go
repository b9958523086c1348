package ratelimiter

import (
	"context"
	"errors"
	"fmt"

	"remindbot/internal/core/domain/user"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

type Interval struct {
	value int
}

var (
	Minute = Interval{}
	Hour   = Interval{value: 1}
)

func (i Interval) String() string {
	if i == Hour {
		return "hour"
	}
	return "minute"
}

type Limit struct {
	Value    uint16
	Interval Interval
}

type Result struct {
	IsAllowed bool
}

func Allowed() Result {
	return Result{IsAllowed: true}
}

func NotAllowed() Result {
	return Result{IsAllowed: false}
}

type RateLimiter interface {
	CheckLimit(ctx context.Context, key string, limit Limit) Result
}

// UpdatesKey is the limiter key for inbound chat updates of the owner.
func UpdatesKey(ownerID user.ID) string {
	return fmt.Sprintf("updates::%d", ownerID)
}
