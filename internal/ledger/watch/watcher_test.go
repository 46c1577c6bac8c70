package watch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeInvalidator struct {
	calls atomic.Int32
	err   error
}

func (f *fakeInvalidator) InvalidateIfChanged(context.Context) (bool, error) {
	f.calls.Add(1)
	return f.err == nil, f.err
}

func TestWatcherPollsUntilCancelled(t *testing.T) {
	inv := &fakeInvalidator{}
	w := New(inv, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return inv.calls.Load() >= 2 },
		time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatcherSurvivesCheckErrors(t *testing.T) {
	inv := &fakeInvalidator{err: errors.New("agent unreachable")}
	w := New(inv, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	assert.Eventually(t, func() bool { return inv.calls.Load() >= 3 },
		time.Second, time.Millisecond)
}

func TestWatcherDefaultInterval(t *testing.T) {
	w := New(&fakeInvalidator{}, 0)
	assert.Equal(t, 15*time.Second, w.interval)
}
