// Package observer provides the single goroutine on which every catalog
// mutation and view recomputation is applied, so observers never see
// interleaved or torn updates.
package observer

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/enginelink/pkg/constants"
	"github.com/agentstation/enginelink/pkg/errors"
)

// ErrStopped is returned for work submitted after the loop stopped.
var ErrStopped = errors.New("observer loop stopped")

// Loop runs submitted functions one at a time, in submission order.
// Functions run by the loop must not call Submit themselves.
type Loop struct {
	work    chan func()
	stopped chan struct{}
	once    sync.Once
	logger  *zerolog.Logger
}

// New creates a loop. Run must be called for submitted work to execute.
func New(logger *zerolog.Logger) *Loop {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Loop{
		work:    make(chan func(), constants.ObserverQueueSize),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Run executes submitted work until ctx is done. Work still queued at that
// point is dropped.
func (l *Loop) Run(ctx context.Context) {
	defer l.once.Do(func() { close(l.stopped) })
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug().Msg("observer loop stopped")
			return
		case fn := <-l.work:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("observer task panicked")
		}
	}()
	fn()
}

// Stopped is closed once Run returned.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}

// Submit runs fn on the loop and waits for it to finish.
func (l *Loop) Submit(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	var panicked any
	task := func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				panicked = r
				panic(r)
			}
		}()
		fn()
	}

	if err := l.enqueue(ctx, task); err != nil {
		return err
	}
	select {
	case <-done:
		if panicked != nil {
			return fmt.Errorf("observer task panicked: %v", panicked)
		}
		return nil
	case <-l.stopped:
		// Run may have finished the task just before stopping
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return errors.NewCanceledError("observer submit", ctx.Err())
	}
}

// Post queues fn without waiting for it to run. It blocks only while the
// queue is full and reports false if the loop stopped first.
func (l *Loop) Post(fn func()) bool {
	return l.enqueue(context.Background(), fn) == nil
}

func (l *Loop) enqueue(ctx context.Context, fn func()) error {
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}
	select {
	case l.work <- fn:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return errors.NewCanceledError("observer submit", ctx.Err())
	}
}
