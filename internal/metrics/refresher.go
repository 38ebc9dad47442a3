package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeventeLantos/wa-relay/internal/model"
)

type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[model.Status]int64, error)
}

// Refresher keeps the relay_records gauge in line with the store.
type Refresher struct {
	interval time.Duration
	counter  StatusCounter

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefresher(interval time.Duration, counter StatusCounter) (*Refresher, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if counter == nil {
		return nil, errors.New("counter must not be nil")
	}
	return &Refresher{
		interval: interval,
		counter:  counter,
		done:     make(chan struct{}),
	}, nil
}

func (r *Refresher) Start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running.Store(true)

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		slog.Info("metrics refresher started", "interval", r.interval.String())

		r.safeRefresh(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.safeRefresh(ctx)
			}
		}
	}()

	return true
}

func (r *Refresher) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running.Load() {
		return false
	}

	r.cancel()
	<-r.done
	r.running.Store(false)

	slog.Info("metrics refresher stopped")
	return true
}

func (r *Refresher) IsRunning() bool {
	return r.running.Load()
}

// Refresh reads the counts once and updates the gauge.
func (r *Refresher) Refresh(ctx context.Context) error {
	counts, err := r.counter.CountByStatus(ctx)
	if err != nil {
		return err
	}
	for _, st := range []model.Status{model.Sent, model.Received, model.Failed} {
		Records.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
	return nil
}

func (r *Refresher) safeRefresh(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("metrics refresh panic recovered", "panic", p)
		}
	}()

	start := time.Now()
	if err := r.Refresh(ctx); err != nil {
		if ctx.Err() == nil {
			slog.Warn("metrics refresh failed", "err", err)
		}
		return
	}
	slog.Debug("metrics refresh completed", "duration_ms", time.Since(start).Milliseconds())
}
