package queue

import (
	"context"
	"sync"
	"time"

	"omega/pkg/log"
)

const defaultRetryInterval = 15 * time.Second

// Sweeper replays queued messages.
type Sweeper interface {
	RetryQueuedMessages(ctx context.Context) SweepResult
}

// Retrier runs a Sweeper on a fixed interval.
type Retrier struct {
	sweeper  Sweeper
	interval time.Duration
	resetCh  chan time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewRetrier creates a retrier. Zero interval uses 15s.
func NewRetrier(sweeper Sweeper, interval time.Duration) *Retrier {
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	return &Retrier{
		sweeper:  sweeper,
		interval: interval,
		resetCh:  make(chan time.Duration, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the retry loop.
func (r *Retrier) Start() {
	r.wg.Add(1)
	go r.loop()
	log.Info().Dur("interval", r.interval).Msg("Queue retrier started")
}

// Stop ends the loop and waits for an in-flight sweep.
func (r *Retrier) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// SetInterval changes the sweep interval of a running retrier.
func (r *Retrier) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	select {
	case <-r.resetCh:
	default:
	}
	select {
	case r.resetCh <- interval:
	default:
	}
}

func (r *Retrier) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-r.stopCh:
			return
		case d := <-r.resetCh:
			ticker.Reset(d)
		case <-ticker.C:
			r.sweeper.RetryQueuedMessages(ctx)
		}
	}
}
