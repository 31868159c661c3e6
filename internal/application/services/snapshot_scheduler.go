package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SchedulerStats tracks watcher progress
type SchedulerStats struct {
	Rounds        int64
	ChecksOK      int64
	ChecksFailed  int64
	LastRoundTime time.Time
	LastRoundMs   int64
}

// SnapshotScheduler checks fixed address sets on an interval so their
// history grows without anyone opening the dashboard.
type SnapshotScheduler struct {
	tracker  *TrackerService
	sets     [][]string
	sessions []*Session
	interval time.Duration
	logger   *zap.Logger

	mu    sync.RWMutex
	stats SchedulerStats

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSnapshotScheduler creates a scheduler with one session per address set
func NewSnapshotScheduler(tracker *TrackerService, sets [][]string, interval time.Duration, logger *zap.Logger) *SnapshotScheduler {
	sessions := make([]*Session, len(sets))
	for i := range sets {
		sessions[i] = NewSession("watcher-" + HistoryKey("", sets[i]))
	}
	return &SnapshotScheduler{
		tracker:  tracker,
		sets:     sets,
		sessions: sessions,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the check loop
func (s *SnapshotScheduler) Start(ctx context.Context) error {
	if len(s.sets) == 0 {
		return errors.New("no address sets configured")
	}
	if s.interval <= 0 {
		return errors.New("interval must be positive")
	}

	s.logger.Info("Starting snapshot scheduler",
		zap.Int("address_sets", len(s.sets)),
		zap.Duration("interval", s.interval),
	)

	s.wg.Add(1)
	go s.run(ctx)

	return nil
}

// Stop stops the loop and waits for the current round to finish. Calling
// it more than once is safe.
func (s *SnapshotScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping snapshot scheduler")
		close(s.stopCh)
	})
	s.wg.Wait()
}

// Stats returns current scheduler stats
func (s *SnapshotScheduler) Stats() SchedulerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *SnapshotScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce checks every address set once, in order. A failing set is logged
// and does not stop the round.
func (s *SnapshotScheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	var ok, failed int64

	for i, set := range s.sets {
		if ctx.Err() != nil {
			break
		}

		result, err := s.tracker.Check(ctx, s.sessions[i], set)
		if err != nil {
			failed++
			s.logger.Warn("Scheduled check failed",
				zap.Int("set", i),
				zap.Int("address_count", len(set)),
				zap.Error(err),
			)
			continue
		}

		ok++
		s.logger.Debug("Scheduled check done",
			zap.Int("set", i),
			zap.String("key", result.HistoryKey),
			zap.Int("history_length", len(result.History)),
		)
	}

	s.mu.Lock()
	s.stats.Rounds++
	s.stats.ChecksOK += ok
	s.stats.ChecksFailed += failed
	s.stats.LastRoundTime = time.Now()
	s.stats.LastRoundMs = time.Since(start).Milliseconds()
	s.mu.Unlock()
}
