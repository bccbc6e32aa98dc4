package notifications

import "errors"

// Queue errors.
var (
	ErrQueueFull     = errors.New("notification queue is full")
	ErrWorkerStopped = errors.New("notification worker stopped")
)

// Unsubscribe token errors.
var (
	ErrSecretKeyRequired = errors.New("secret key is required")
	ErrInvalidToken      = errors.New("invalid unsubscribe token")
)
