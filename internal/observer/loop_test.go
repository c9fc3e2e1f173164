package observer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/logging"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(logging.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Stopped()
	})
	return l, cancel
}

func TestSubmitRunsInOrder(t *testing.T) {
	l, _ := startLoop(t)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func() { order = append(order, i) }))
	}
	require.NoError(t, l.Submit(context.Background(), func() { order = append(order, 99) }))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 99}, order)
}

func TestSubmitSerializesProducers(t *testing.T) {
	l, _ := startLoop(t)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// unsynchronized on purpose: only the loop touches counter
			assert.NoError(t, l.Submit(context.Background(), func() { counter++ }))
		}()
	}
	wg.Wait()
	require.NoError(t, l.Submit(context.Background(), func() {}))
	assert.Equal(t, 50, counter)
}

func TestSubmitAfterStop(t *testing.T) {
	l, cancel := startLoop(t)
	cancel()
	<-l.Stopped()

	err := l.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrStopped)
	assert.False(t, l.Post(func() {}))
}

func TestSubmitCanceled(t *testing.T) {
	l, _ := startLoop(t)

	release := make(chan struct{})
	require.True(t, l.Post(func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Submit(ctx, func() {})
	assert.True(t, errors.IsCanceled(err))
	close(release)
}

func TestPanicKeepsLoopAlive(t *testing.T) {
	tl := logging.NewTestLogger(t)
	l := New(tl.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	err := l.Submit(context.Background(), func() { panic("boom") })
	assert.ErrorContains(t, err, "boom")
	assert.NoError(t, l.Submit(context.Background(), func() {}))
	assert.True(t, tl.Contains("observer task panicked"))
}
