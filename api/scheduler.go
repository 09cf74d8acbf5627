/*
scheduler.go - Automated year-end carry forward

PURPOSE:
  Periodically checks whether a new leave year has started and, if so,
  resets every balance for it through leave.Ledger.ResetYear (quota plus
  capped carry forward).

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Acts only during the first WindowDays of January, so a server started
    mid-year never resets balances on its own
  - ResetYear skips balances already reset for the year, so overlapping
    runs (manual endpoint, restarts, several replicas) are harmless
  - Remembers the last year it completed to avoid repeated no-op runs

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour, 0 disables)
  - WindowDays:    Days into January during which it acts (default: 7)

USAGE:
  scheduler := NewCarryForwardScheduler(eng.Ledger, time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: YearReset endpoint (manual trigger)
  - leave/ledger.go: ResetYear
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/warp/leave-engine/leave"
)

// CarryForwardScheduler handles automated year-end carry forward.
type CarryForwardScheduler struct {
	Ledger        *leave.Ledger
	CheckInterval time.Duration
	WindowDays    int
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time

	ticker   *time.Ticker
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	runMu    sync.Mutex
	lastYear int
}

func NewCarryForwardScheduler(ledger *leave.Ledger, interval time.Duration) *CarryForwardScheduler {
	return &CarryForwardScheduler{
		Ledger:        ledger,
		CheckInterval: interval,
		WindowDays:    7,
		Now:           time.Now,
	}
}

// Start begins the scheduler. A non-positive interval leaves it disabled.
func (s *CarryForwardScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CheckInterval <= 0 {
		log.Info().Msg("carry forward scheduler disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run()

	log.Info().Dur("interval", s.CheckInterval).Msg("carry forward scheduler started")
}

// Stop stops the scheduler and waits for an in-flight run.
func (s *CarryForwardScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	log.Info().Msg("carry forward scheduler stopped")
}

func (s *CarryForwardScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.check(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.check(context.Background())
		case <-s.stop:
			return
		}
	}
}

// due reports the year to reset, if now falls inside the January window and
// that year has not been completed by this scheduler.
func (s *CarryForwardScheduler) due(now time.Time) (int, bool) {
	if now.Month() != time.January || now.Day() > s.WindowDays {
		return 0, false
	}
	if now.Year() == s.lastYear {
		return 0, false
	}
	return now.Year(), true
}

func (s *CarryForwardScheduler) check(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	year, ok := s.due(s.Now())
	if !ok {
		return
	}
	if _, err := s.reset(ctx, year); err != nil {
		log.Error().Err(err).Int("year", year).Msg("carry forward failed")
	}
}

// RunNow resets balances for year immediately.
func (s *CarryForwardScheduler) RunNow(ctx context.Context, year int) (*leave.YearResetSummary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.reset(ctx, year)
}

func (s *CarryForwardScheduler) reset(ctx context.Context, year int) (*leave.YearResetSummary, error) {
	sum, err := s.Ledger.ResetYear(ctx, leave.SystemActor, year)
	if err != nil {
		return nil, err
	}
	s.lastYear = year
	log.Info().
		Int("year", sum.Year).
		Int("reset", sum.Reset).
		Int("skipped", sum.Skipped).
		Msg("carry forward completed")
	return sum, nil
}
