package chat

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// idleTimer cancels a request once no progress has been made for d: neither
// response headers nor body bytes. This bounds every wait on the provider
// without capping the total length of a long stream.
type idleTimer struct {
	d     time.Duration
	timer *time.Timer
	fired atomic.Bool
}

// newIdleTimer arms a timer that calls cancel after d. A zero d disables it.
func newIdleTimer(d time.Duration, cancel context.CancelFunc) *idleTimer {
	t := &idleTimer{d: d}
	if d <= 0 {
		return t
	}

	t.timer = time.AfterFunc(d, func() {
		t.fired.Store(true)
		cancel()
	})

	return t
}

func (t *idleTimer) touch() {
	if t.timer != nil && !t.fired.Load() {
		t.timer.Reset(t.d)
	}
}

func (t *idleTimer) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

// wrap marks err as a timeout when the timer is what interrupted it.
func (t *idleTimer) wrap(err error) error {
	if t.fired.Load() {
		return fmt.Errorf("%w after %s: %w", ErrTimeout, t.d, err)
	}
	return err
}

// idleReader re-arms the timer on every read.
type idleReader struct {
	r     io.Reader
	timer *idleTimer
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.timer.touch()
	return n, err
}
