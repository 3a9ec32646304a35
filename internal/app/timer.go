package app

import (
	"sync"
	"time"
)

// RoundTimer counts one round down from its duration. Callbacks run on the
// timer's own goroutine; callers serialize them with the room's other events.
type RoundTimer struct {
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	start    sync.Once
	cancel   sync.Once
}

// NewRoundTimer creates a timer that ticks once per interval
func NewRoundTimer(interval time.Duration) *RoundTimer {
	if interval <= 0 {
		interval = time.Second
	}
	return &RoundTimer{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the countdown. onTick receives durationTicks-1 down to 1,
// then onExpire is called exactly once. Later calls to Start are ignored.
func (t *RoundTimer) Start(durationTicks int, onTick func(remaining int), onExpire func()) {
	t.start.Do(func() {
		go t.run(durationTicks, onTick, onExpire)
	})
}

// Cancel stops further ticks and expiry. It is a no-op after expiry.
func (t *RoundTimer) Cancel() {
	t.cancel.Do(func() {
		close(t.stop)
	})
}

// Done is closed once the timer goroutine has exited
func (t *RoundTimer) Done() <-chan struct{} {
	return t.done
}

func (t *RoundTimer) run(remaining int, onTick func(int), onExpire func()) {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if t.cancelled() {
				return
			}

			remaining--
			if remaining <= 0 {
				onExpire()
				return
			}

			onTick(remaining)
		}
	}
}

func (t *RoundTimer) cancelled() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}
