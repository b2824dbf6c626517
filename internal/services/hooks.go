package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/models"
	"golang.org/x/sync/errgroup"
)

// BookingEvent describes a committed booking transition
type BookingEvent struct {
	ID         uuid.UUID
	Type       models.BookingEventType
	Booking    *models.Booking
	Listing    *models.Listing
	Actor      models.Actor
	OccurredAt time.Time
}

func newBookingEvent(eventType models.BookingEventType, booking *models.Booking, listing *models.Listing, actor models.Actor, at time.Time) *BookingEvent {
	return &BookingEvent{
		ID:         uuid.New(),
		Type:       eventType,
		Booking:    booking,
		Listing:    listing,
		Actor:      actor,
		OccurredAt: at,
	}
}

// snapshot copies the booking so background hooks never share it with the response
func (e *BookingEvent) snapshot() *BookingEvent {
	cp := *e
	booking := *e.Booking
	cp.Booking = &booking
	return &cp
}

// PostCommitHook reacts to a committed transition
type PostCommitHook interface {
	Name() string
	Handle(ctx context.Context, event *BookingEvent) error
}

// InlineHook is a hook whose outcome is reported to the caller, so it runs
// before the response is written and may update event.Booking in place.
// InlineBudget bounds its external call.
type InlineHook interface {
	PostCommitHook
	InlineBudget() time.Duration
}

const (
	defaultHookTimeout = 20 * time.Second
	// inlineGrace covers the store writes an inline hook does after its external call
	inlineGrace = 2 * time.Second
)

// hookRunner runs inline hooks on the request path, then hands the remaining
// hooks to the dispatcher in registration order. Each hook has its own error
// boundary: errors and panics are logged and never reach the caller.
type hookRunner struct {
	inline     []InlineHook
	background []PostCommitHook
	dispatcher *HookDispatcher
	logger     *logrus.Logger
	timeout    time.Duration
}

func newHookRunner(logger *logrus.Logger, hooks ...PostCommitHook) *hookRunner {
	r := &hookRunner{logger: logger, timeout: defaultHookTimeout}
	for _, hook := range hooks {
		if inline, ok := hook.(InlineHook); ok {
			r.inline = append(r.inline, inline)
			continue
		}
		r.background = append(r.background, hook)
	}
	return r
}

// run is called after the transition committed. The request context may be
// cancelled once the response is written, so hooks get a detached one.
// Without a dispatcher background hooks run before run returns.
func (r *hookRunner) run(ctx context.Context, event *BookingEvent) {
	detached := context.WithoutCancel(ctx)

	for _, hook := range r.inline {
		r.invoke(detached, hook, event, hook.InlineBudget()+inlineGrace)
	}

	if len(r.background) == 0 {
		return
	}

	snap := event.snapshot()
	job := func() {
		for _, hook := range r.background {
			r.invoke(detached, hook, snap, r.timeout)
		}
	}

	if r.dispatcher == nil {
		job()
		return
	}
	r.dispatcher.Dispatch(job)
}

func (r *hookRunner) invoke(ctx context.Context, hook PostCommitHook, event *BookingEvent, timeout time.Duration) {
	fields := logrus.Fields{
		"hook":       hook.Name(),
		"event":      event.Type,
		"booking_id": event.Booking.ID,
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithFields(fields).WithError(fmt.Errorf("panic: %v", rec)).Error("Post-commit hook panicked")
		}
	}()

	hookCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := hook.Handle(hookCtx, event); err != nil {
		r.logger.WithFields(fields).WithError(err).Warn("Post-commit hook failed")
	}
}

// HookDispatcher runs background post-commit work on a fixed worker pool.
// Dispatch never blocks the caller; Shutdown drains what was queued.
type HookDispatcher struct {
	jobs   chan func()
	group  errgroup.Group
	mu     sync.RWMutex
	closed bool
	logger *logrus.Logger
}

// NewHookDispatcher starts workers goroutines reading a queue of queueSize jobs
func NewHookDispatcher(workers, queueSize int, logger *logrus.Logger) *HookDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	d := &HookDispatcher{
		jobs:   make(chan func(), queueSize),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		d.group.Go(func() error {
			for job := range d.jobs {
				job()
			}
			return nil
		})
	}
	return d
}

// Dispatch queues job. A full queue spills onto a dedicated goroutine that
// Shutdown still waits for; after Shutdown the job runs on the caller.
func (d *HookDispatcher) Dispatch(job func()) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		job()
		return
	}

	select {
	case d.jobs <- job:
	default:
		d.logger.WithField("queue_size", cap(d.jobs)).Warn("Post-commit queue full, running job on its own goroutine")
		d.group.Go(func() error {
			job()
			return nil
		})
	}
}

// Shutdown stops accepting queued work and waits for in-flight jobs
func (d *HookDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = d.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("post-commit hooks still running at shutdown: %w", ctx.Err())
	}
}
