package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// WorkerConfig contains worker configuration.
type WorkerConfig struct {
	QueueSize         int
	NumWorkers        int
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// RatePerSecond limits sends across all workers. Zero disables the limit.
	RatePerSecond float64
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		QueueSize:         1000,
		NumWorkers:        2,
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        1 * time.Minute,
		BackoffMultiplier: 2.0,
		RatePerSecond:     5,
	}
}

// Job is a single notification addressed to one subscriber.
type Job struct {
	To      string
	Payload NotificationPayload
}

// Worker delivers queued notification jobs.
type Worker struct {
	config   WorkerConfig
	sender   Sender
	renderer *Renderer
	limiter  *rate.Limiter

	jobs     chan Job
	stopCh   chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorker creates a new notification worker.
func NewWorker(config WorkerConfig, sender Sender, renderer *Renderer) *Worker {
	defaults := DefaultWorkerConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.NumWorkers <= 0 {
		config.NumWorkers = defaults.NumWorkers
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.BackoffMultiplier < 1 {
		config.BackoffMultiplier = defaults.BackoffMultiplier
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), 1)
	}

	return &Worker{
		config:   config,
		sender:   sender,
		renderer: renderer,
		limiter:  limiter,
		jobs:     make(chan Job, config.QueueSize),
		stopCh:   make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	slog.Info("starting notification worker",
		"workers", w.config.NumWorkers,
		"queue_size", w.config.QueueSize,
		"rate_per_second", w.config.RatePerSecond,
	)

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Stop stops all workers and waits for in-flight sends to finish.
// Jobs still in the queue are dropped.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
		if n := len(w.jobs); n > 0 {
			notificationsDropped.Add(float64(n))
			slog.Warn("notification worker stopped with pending jobs", "dropped", n)
		}
		slog.Info("notification worker stopped")
	})
}

// Enqueue adds a job without blocking.
func (w *Worker) Enqueue(job Job) error {
	select {
	case <-w.stopCh:
		return ErrWorkerStopped
	default:
	}

	select {
	case w.jobs <- job:
		notificationQueueSize.Set(float64(len(w.jobs)))
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case job := <-w.jobs:
			notificationQueueSize.Set(float64(len(w.jobs)))
			w.process(ctx, workerID, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, workerID int, job Job) {
	messageType := job.Payload.MessageType

	subject, body, err := w.renderer.Render(job.Payload)
	if err != nil {
		slog.Error("failed to render", "worker", workerID, "message_type", messageType, "error", err)
		recordNotificationSent(messageType, "failed")
		return
	}

	notification := Notification{
		To:             job.To,
		Subject:        subject,
		Body:           body,
		UnsubscribeURL: job.Payload.UnsubscribeURL,
	}

	for attempt := 1; ; attempt++ {
		if err := w.limiter.Wait(ctx); err != nil {
			recordNotificationSent(messageType, "cancelled")
			return
		}

		start := time.Now()
		err = w.sender.Send(ctx, notification)
		duration := time.Since(start)

		if err == nil {
			recordNotificationSent(messageType, "success")
			recordNotificationDuration(duration)
			slog.Debug("notification sent",
				"worker", workerID,
				"message_type", messageType,
				"page", job.Payload.Page.Slug,
				"attempt", attempt,
				"duration", duration,
			)
			return
		}

		slog.Warn("send failed",
			"worker", workerID,
			"page", job.Payload.Page.Slug,
			"attempt", attempt,
			"max_attempts", w.config.MaxAttempts,
			"error", err,
		)

		if !isRetryable(err) {
			recordNotificationSent(messageType, "failed")
			return
		}
		if attempt >= w.config.MaxAttempts {
			slog.Error("notification dropped", "page", job.Payload.Page.Slug, "error", fmt.Errorf("max attempts exceeded: %w", err))
			recordNotificationSent(messageType, "failed")
			return
		}

		recordNotificationSent(messageType, "retry")
		if !w.sleep(ctx, w.calculateBackoff(attempt)) {
			recordNotificationSent(messageType, "cancelled")
			return
		}
	}
}

// sleep waits for d. Returns false if the worker is stopping.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-w.stopCh:
		return false
	}
}

func (w *Worker) calculateBackoff(attempt int) time.Duration {
	backoff := float64(w.config.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= w.config.BackoffMultiplier
	}

	if w.config.MaxBackoff > 0 && backoff > float64(w.config.MaxBackoff) {
		backoff = float64(w.config.MaxBackoff)
	}

	return time.Duration(backoff)
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	type retryable interface {
		IsRetryable() bool
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	// Default: retry unknown errors
	return true
}

// RetryableError wraps an error and marks it as retryable or not.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

// IsRetryable returns whether the error is retryable.
func (e *RetryableError) IsRetryable() bool {
	return e.Retryable
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a retryable error.
func NewRetryableError(err error) *RetryableError {
	return &RetryableError{Err: err, Retryable: true}
}

// NewNonRetryableError creates a non-retryable error.
func NewNonRetryableError(err error) *RetryableError {
	return &RetryableError{Err: err, Retryable: false}
}
