// Package store is a generic container of state, updated by a reducer.
//
// State values handed out by Store (State, Dispatch and subscriptions)
// are snapshots shared between readers. Reducers must return new values
// and never modify their input.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned for operations on a closed Store.
var ErrClosed = errors.New("store: closed")

// Reducer computes the next state from the current state and an action.
type Reducer[S, A any] func(state S, action A) S

type Store[S, A any] struct {
	mu     sync.Mutex
	state  S
	reduce Reducer[S, A]
	closed bool
	subs   map[*Subscription[S]]struct{}

	// lifetime of operations.
	ctx    context.Context
	cancel context.CancelCauseFunc

	// closed when the operation queued last and every one before it are over.
	tail <-chan struct{}
	ops  sync.WaitGroup
}

func New[S, A any](initial S, reduce Reducer[S, A]) *Store[S, A] {
	ctx, cancel := context.WithCancelCause(context.Background())
	done := make(chan struct{})
	close(done)
	return &Store[S, A]{
		state:  initial,
		reduce: reduce,
		subs:   map[*Subscription[S]]struct{}{},
		ctx:    ctx,
		cancel: cancel,
		tail:   done,
	}
}

// State returns the current snapshot.
func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces actions in order and publishes the resulting state once.
//
// It returns the new state and true.
// After Close, state is frozen: Dispatch does nothing and returns the last state and false.
func (s *Store[S, A]) Dispatch(actions ...A) (S, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.state, false
	}
	next := s.state
	for _, a := range actions {
		next = s.reduce(next, a)
	}
	s.state = next
	for sub := range s.subs {
		sub.publish(next)
	}
	return next, true
}

// Subscribe starts receiving snapshots.
//
// The current snapshot is delivered first, then every dispatched state in order.
// When the subscriber falls behind more than buffer snapshots,
// older ones are dropped and the latest is kept.
//
// The channel is closed when the subscription or the store is closed.
func (s *Store[S, A]) Subscribe(buffer int) (*Subscription[S], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	sub := &Subscription[S]{
		ch:          make(chan S, max(1, buffer)),
		unsubscribe: s.unsubscribe,
	}
	sub.publish(s.state)
	s.subs[sub] = struct{}{}
	return sub, nil
}

func (s *Store[S, A]) unsubscribe(sub *Subscription[S]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.ch)
}

// Go queues an operation.
//
// Operations run one by one, in the order they are queued.
// Each of them receives a context which is cancelled by Close.
func (s *Store[S, A]) Go(op func(context.Context) error) (*Op, error) {
	o, _, err := s.GoCancellable(op)
	return o, err
}

// GoCancellable queues an operation like Go, and returns a function cancelling it.
//
// Cancelling an operation which is not started yet skips it.
func (s *Store[S, A]) GoCancellable(op func(context.Context) error) (*Op, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, ErrClosed
	}

	ctx, cancel := context.WithCancel(s.ctx)
	o := &Op{done: make(chan struct{})}
	turn := make(chan struct{})
	prev := s.tail
	s.tail = turn
	s.ops.Add(1)

	go func() {
		defer s.ops.Done()
		defer close(turn)
		defer cancel()

		select {
		case <-prev:
		case <-ctx.Done():
		}
		if err := context.Cause(ctx); err != nil {
			// skipped. the next operation still waits for the previous one.
			o.err = err
			close(o.done)
			<-prev
			return
		}
		o.err = op(ctx)
		close(o.done)
	}()

	return o, cancel, nil
}

// Close cancels operations, waits for them and closes subscriptions.
//
// After Close, state is frozen. Close can be called more than once.
func (s *Store[S, A]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.ops.Wait()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel(ErrClosed)
	s.ops.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		delete(s.subs, sub)
		close(sub.ch)
	}
}

// Closed tells Close has been called.
func (s *Store[S, A]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Op is a handle of a queued operation.
type Op struct {
	done chan struct{}
	err  error
}

// Done is closed when the operation has finished or has been skipped.
func (o *Op) Done() <-chan struct{} {
	return o.done
}

// Err returns the result of the operation. It is valid after Done is closed.
//
// A skipped operation has the cause of its cancellation:
// ErrClosed when the store is closed, context.Canceled when it is cancelled by itself.
func (o *Op) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

// Wait blocks until the operation finishes or ctx is done.
func (o *Op) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscription delivers snapshots of a Store.
type Subscription[S any] struct {
	ch          chan S
	unsubscribe func(*Subscription[S])
}

// C returns the channel of snapshots.
func (s *Subscription[S]) C() <-chan S {
	return s.ch
}

// Close stops the subscription. It can be called more than once.
func (s *Subscription[S]) Close() {
	s.unsubscribe(s)
}

// publish sends v without blocking, dropping the oldest snapshot if needed.
//
// It should be called with the lock of the store.
func (s *Subscription[S]) publish(v S) {
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}
