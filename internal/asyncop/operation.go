package asyncop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Status is the observable phase of an operation.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is a point-in-time snapshot of an operation's observable state.
type State[T any] struct {
	Status      Status
	Data        T
	HasData     bool
	Err         string
	LastUpdated time.Time
}

// Outcome is the terminal result delivered to the caller that started a run.
// Cancelled runs (superseded, reset, or deadline-exceeded) are distinguished
// from genuine failures.
type Outcome[T any] struct {
	Data      T
	Err       error
	Cancelled bool
}

// Work is a cancellable unit of work. Implementations must honor ctx at every
// blocking point.
type Work[T any] func(ctx context.Context) (T, error)

// Operation wraps one asynchronous unit of work at a time. The zero value is
// not usable; create instances with New.
type Operation[T any] struct {
	mu     sync.Mutex
	state  State[T]
	gen    uint64
	cancel context.CancelFunc
}

// New creates an idle operation.
func New[T any]() *Operation[T] {
	return &Operation[T]{state: State[T]{Status: StatusIdle}}
}

// Start begins a new run, cancelling and superseding any run already in
// flight. The returned channel receives exactly one Outcome for this run and
// is buffered, so the caller may abandon it.
//
// A run that finishes after being superseded reports Cancelled on its own
// channel but never touches the operation's state.
func (o *Operation[T]) Start(ctx context.Context, work Work[T]) <-chan Outcome[T] {
	done := make(chan Outcome[T], 1)

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
	gen := o.gen
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.state.Status = StatusLoading
	o.state.Err = ""
	o.mu.Unlock()

	go func() {
		data, err := runGuarded(runCtx, work)
		cancel()

		cancelled := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)

		o.mu.Lock()
		if gen != o.gen {
			// Superseded while running. State belongs to a newer run now.
			o.mu.Unlock()
			done <- Outcome[T]{Err: err, Cancelled: true}
			return
		}
		o.cancel = nil

		switch {
		case cancelled:
			o.state.Status = StatusIdle
		case err != nil:
			o.state.Status = StatusError
			o.state.Err = err.Error()
			o.state.LastUpdated = time.Now()
		default:
			o.state.Status = StatusSuccess
			o.state.Data = data
			o.state.HasData = true
			o.state.Err = ""
			o.state.LastUpdated = time.Now()
		}
		o.mu.Unlock()

		done <- Outcome[T]{Data: data, Err: err, Cancelled: cancelled}
	}()

	return done
}

// runGuarded executes work and converts panics into errors so an unexpected
// failure cannot escape the operation boundary.
func runGuarded[T any](ctx context.Context, work Work[T]) (data T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panic: %v", r)
		}
	}()
	return work(ctx)
}

// Cancel stops any in-flight run without altering stored data from previous
// completions. A loading operation returns to idle.
func (o *Operation[T]) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
	if o.state.Status == StatusLoading {
		o.state.Status = StatusIdle
	}
}

// Reset cancels any in-flight run and clears the operation back to its
// initial idle state, discarding stored data.
func (o *Operation[T]) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
	o.state = State[T]{Status: StatusIdle}
}

// Mutate stores data directly without going through the status machine.
// Used for optimistic local updates that did not originate from a run.
func (o *Operation[T]) Mutate(data T) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.Data = data
	o.state.HasData = true
	o.state.LastUpdated = time.Now()
}

// Snapshot returns the current observable state.
func (o *Operation[T]) Snapshot() State[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}
