package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultSweepInterval = time.Minute

// sweeper expires state older than its own TTL
type sweeper interface {
	Sweep(now time.Time) int
}

// janitor periodically sweeps staged uploads and pending deletions
type janitor struct {
	interval time.Duration
	sweepers []sweeper
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	running  bool
	mu       sync.Mutex
}

func newJanitor(interval time.Duration, log zerolog.Logger, sweepers ...sweeper) *janitor {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &janitor{
		interval: interval,
		sweepers: sweepers,
		log:      log.With().Str("service", "janitor").Logger(),
	}
}

// StartSweeper runs until ctx is cancelled or StopSweeper is called
func (j *janitor) StartSweeper(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	done := j.done
	j.mu.Unlock()
	defer close(done)

	j.log.Info().Dur("interval", j.interval).Msg("Sweeper started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			j.log.Info().Msg("Sweeper stopping")
			return
		case now := <-ticker.C:
			j.sweep(now)
		}
	}
}

// StopSweeper stops the loop and waits for it to exit
func (j *janitor) StopSweeper() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}

	j.cancel()
	<-j.done
	j.running = false
	j.log.Info().Msg("Sweeper stopped")
}

func (j *janitor) sweep(now time.Time) {
	// A panicking sweeper must not take the process down
	defer func() {
		if r := recover(); r != nil {
			j.log.Error().Interface("panic", r).Msg("Sweep panicked - recovered")
		}
	}()

	removed := 0
	for _, s := range j.sweepers {
		removed += s.Sweep(now)
	}
	if removed > 0 {
		j.log.Debug().Int("removed", removed).Msg("Sweep completed")
	}
}
