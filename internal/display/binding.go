package display

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/command"
)

// Loader performs the invocation behind a Binding.
type Loader[T any] func(ctx context.Context) (T, error)

type listener[T any] struct {
	id int
	fn func(State[T])
}

// Binding owns the Display State of one command invocation.
//
// Activate issues the invocation once per Binding; Reload starts a new
// attempt. Each attempt resets the state to Pending with the empty value.
// A result that arrives after a newer attempt has started is dropped.
type Binding[T any] struct {
	name   string
	load   Loader[T]
	empty  T
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	state     State[T]
	attempt   uint64
	activated bool
	done      chan struct{}
	listeners []listener[T]
	nextID    int
}

// NewBinding creates an Idle binding. empty is the value shown while pending
// and after a failure.
func NewBinding[T any](name string, load Loader[T], empty T, logger *zap.Logger) *Binding[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Binding[T]{
		name:   name,
		load:   load,
		empty:  empty,
		logger: logger,
		now:    time.Now,
	}
	b.state = State[T]{Phase: Idle, Value: empty, UpdatedAt: b.now()}
	return b
}

// Name returns the binding's label.
func (b *Binding[T]) Name() string {
	return b.name
}

// State returns the current Display State.
func (b *Binding[T]) State() State[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Subscribe registers fn to be called after every state change. The
// returned function removes the subscription.
func (b *Binding[T]) Subscribe(fn func(State[T])) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener[T]{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, l := range b.listeners {
			if l.id == id {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Activate issues the invocation the first time it is called. Later calls
// do not invoke again; they wait for the attempt in flight, or return the
// settled state. The channel yields the terminal state once and closes.
func (b *Binding[T]) Activate(ctx context.Context) <-chan State[T] {
	b.mu.Lock()
	if b.activated {
		done := b.done
		b.mu.Unlock()
		return b.await(done)
	}
	b.activated = true
	return b.startLocked(ctx)
}

// Reload starts a new attempt regardless of earlier ones.
func (b *Binding[T]) Reload(ctx context.Context) <-chan State[T] {
	b.mu.Lock()
	b.activated = true
	return b.startLocked(ctx)
}

// startLocked is called with mu held and releases it.
func (b *Binding[T]) startLocked(ctx context.Context) <-chan State[T] {
	b.attempt++
	attempt := b.attempt
	done := make(chan struct{})
	b.done = done
	pending := State[T]{Phase: Pending, Value: b.empty, UpdatedAt: b.now()}
	b.state = pending
	listeners := b.snapshotListeners()
	b.mu.Unlock()

	notify(listeners, pending)

	out := make(chan State[T], 1)
	go func() {
		defer close(out)
		defer close(done)

		value, err := b.load(ctx)

		final := State[T]{Phase: Succeeded, Value: value, UpdatedAt: b.now()}
		if err != nil {
			final = State[T]{
				Phase:     Failed,
				Value:     b.empty,
				Err:       err,
				Reason:    command.Reason(err),
				UpdatedAt: b.now(),
			}
		}

		b.mu.Lock()
		if attempt != b.attempt {
			// Superseded by a reload
			b.mu.Unlock()
			out <- final
			return
		}
		b.state = final
		listeners := b.snapshotListeners()
		b.mu.Unlock()

		if err != nil {
			b.logger.Error("Command invocation failed",
				zap.String("binding", b.name),
				zap.String("reason", final.Reason),
				zap.Error(err))
		}
		notify(listeners, final)
		out <- final
	}()
	return out
}

func (b *Binding[T]) await(done chan struct{}) <-chan State[T] {
	out := make(chan State[T], 1)
	go func() {
		defer close(out)
		<-done
		out <- b.State()
	}()
	return out
}

// snapshotListeners must be called with mu held.
func (b *Binding[T]) snapshotListeners() []func(State[T]) {
	fns := make([]func(State[T]), len(b.listeners))
	for i, l := range b.listeners {
		fns[i] = l.fn
	}
	return fns
}

func notify[T any](fns []func(State[T]), s State[T]) {
	for _, fn := range fns {
		fn(s)
	}
}

// Wait blocks until ch yields a state or ctx is done.
func Wait[T any](ctx context.Context, ch <-chan State[T]) (State[T], error) {
	select {
	case s := <-ch:
		return s, nil
	case <-ctx.Done():
		var zero State[T]
		return zero, ctx.Err()
	}
}
