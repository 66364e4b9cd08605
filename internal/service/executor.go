package service

import (
	"context"
	"fmt"
	"sync"
)

// Executor runs blocking driver calls on one dedicated worker goroutine.
//
// Work is ordered by reservation: the listener reserves a Ticket for every
// request as it is received, and the worker serves tickets strictly in that
// order. A ticket is either submitted once or released; the worker waits on
// each ticket in turn, so calls never overlap and never reorder.
//
// Thread Safety:
//   - Reserve, Stop and Ticket methods are safe for concurrent use.
type Executor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Ticket
	stopped bool
	done    chan struct{}
}

// Ticket is one request's place in the executor queue.
type Ticket struct {
	jobs chan func()
	once sync.Once
	err  error
}

// NewExecutor starts the worker goroutine.
func NewExecutor() *Executor {
	e := &Executor{done: make(chan struct{})}
	e.cond = sync.NewCond(&e.mu)
	go e.run()
	return e
}

// Reserve appends a ticket to the queue. After Stop the returned ticket
// fails with ErrExecutorStopped.
func (e *Executor) Reserve() *Ticket {
	t := &Ticket{jobs: make(chan func(), 1)}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		t.err = ErrExecutorStopped
		t.Release()
		return t
	}
	e.queue = append(e.queue, t)
	e.cond.Signal()
	return t
}

// Pending returns the number of tickets waiting for the worker.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Stop refuses new reservations, lets the worker finish every ticket
// already queued, and waits for it to exit.
func (e *Executor) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.cond.Broadcast()
	e.mu.Unlock()

	<-e.done
}

func (e *Executor) run() {
	defer close(e.done)

	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.stopped {
			e.cond.Wait()
		}
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		t := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		if job, ok := <-t.jobs; ok {
			job()
		}
	}
}

// Release gives up the ticket without running anything. It is a no-op
// after the ticket was submitted, so callers can always defer it.
func (t *Ticket) Release() {
	t.once.Do(func() { close(t.jobs) })
}

// submit runs fn on the worker through ticket t and waits for its result.
// A panic in fn is recovered and returned as ErrDriverPanic. If ctx ends
// first, submit returns ctx.Err() while fn still runs to completion.
func submit[T any](ctx context.Context, t *Ticket, fn func() (T, error)) (T, error) {
	var zero T
	if t.err != nil {
		return zero, t.err
	}

	type outcome struct {
		value T
		err   error
	}
	result := make(chan outcome, 1)

	submitted := false
	t.once.Do(func() {
		submitted = true
		t.jobs <- func() {
			defer func() {
				if r := recover(); r != nil {
					result <- outcome{err: fmt.Errorf("%w: %v", ErrDriverPanic, r)}
				}
			}()
			v, err := fn()
			result <- outcome{value: v, err: err}
		}
		close(t.jobs)
	})
	if !submitted {
		return zero, ErrTicketUsed
	}

	select {
	case o := <-result:
		return o.value, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
