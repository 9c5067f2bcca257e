/*
scheduler.go - Background recomputation on clock ticks

PURPOSE:
  Draft eligibility depends on the calendar: when the clock crosses an
  entitlement day or a month boundary, new months become eligible without
  any user action. The scheduler periodically re-runs the engine so the
  held draft set tracks the clock even while the UI is idle.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Each run is a full recomputation; runs are idempotent, so a tick
    that changes nothing is harmless
  - Stop() waits for an in-flight run to finish

USAGE:
  scheduler := NewRecomputeScheduler(handler, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RecomputeScheduler re-runs the engine on a timer.
type RecomputeScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Log           zerolog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewRecomputeScheduler(handler *Handler, log zerolog.Logger) *RecomputeScheduler {
	return &RecomputeScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RecomputeScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)
	go rs.run()

	rs.Log.Info().Dur("interval", rs.CheckInterval).Msg("recompute scheduler started")
}

// Stop stops the scheduler.
func (rs *RecomputeScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.Log.Info().Msg("recompute scheduler stopped")
	}
}

func (rs *RecomputeScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start so the held set is warm.
	rs.recompute()

	for {
		select {
		case <-rs.ticker.C:
			rs.recompute()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RecomputeScheduler) recompute() {
	drafts, err := rs.Handler.Recompute(context.Background())
	if err != nil {
		rs.Log.Error().Err(err).Msg("scheduled recompute failed")
		return
	}
	rs.Log.Debug().Int("drafts", len(drafts)).Msg("scheduled recompute completed")
}
