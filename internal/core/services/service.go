package services

import "context"

// Service is a single use case of the bot. Input and output are plain values
// so handlers and the scheduler can call any of them the same way.
type Service[T any, S any] interface {
	Run(ctx context.Context, input T) (S, error)
}
