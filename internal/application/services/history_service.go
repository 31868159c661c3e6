package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
	"github.com/bimakw/lighter-tracker/internal/domain/repositories"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/metrics"
)

// DefaultMaxSnapshots is the retention window used when none is configured
const DefaultMaxSnapshots = 100

// HistoryOptions configures a HistoryService
type HistoryOptions struct {
	KeyPrefix    string
	MaxSnapshots int
	Now          func() time.Time
}

// SaveResult is the outcome of persisting one snapshot
type SaveResult struct {
	Key      string
	Snapshot entities.Snapshot
	Length   int
	Dropped  int
	Invalid  int
	Err      error
}

// HistoryService persists balance snapshots per address set.
//
// Every operation is best-effort: read failures and corrupted values read
// as an empty history, and write failures (quota included) are logged and
// counted but never returned. Callers must be able to render without history.
type HistoryService struct {
	store   repositories.KVStore
	builder *SnapshotBuilder
	opts    HistoryOptions
	logger  *zap.Logger
	metrics *metrics.TrackerMetrics

	// serializes read-modify-write cycles
	mu sync.Mutex
}

// NewHistoryService creates a new history service
func NewHistoryService(
	store repositories.KVStore,
	opts HistoryOptions,
	m *metrics.TrackerMetrics,
	logger *zap.Logger,
) *HistoryService {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultHistoryKeyPrefix
	}
	if opts.MaxSnapshots < 1 {
		opts.MaxSnapshots = DefaultMaxSnapshots
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &HistoryService{
		store:   store,
		builder: NewSnapshotBuilder(logger),
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
}

// Key returns the history key of an address set
func (s *HistoryService) Key(addresses []string) string {
	return HistoryKey(s.opts.KeyPrefix, addresses)
}

// Save appends a snapshot of accounts to the history of addresses and
// returns the key used. It never fails; see Persist for the outcome.
func (s *HistoryService) Save(ctx context.Context, addresses []string, accounts []entities.Account) string {
	return s.Persist(ctx, addresses, accounts).Key
}

// Persist appends a snapshot and reports what happened. A nil or empty
// accounts slice stores nothing.
func (s *HistoryService) Persist(ctx context.Context, addresses []string, accounts []entities.Account) SaveResult {
	key := s.Key(addresses)
	if len(accounts) == 0 {
		s.logger.Debug("No accounts, snapshot skipped", zap.String("key", key))
		return SaveResult{Key: key}
	}

	snapshot, report := s.builder.Build(addresses, accounts, s.opts.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.load(ctx, key)
	history = append(history, snapshot)

	dropped := 0
	if len(history) > s.opts.MaxSnapshots {
		dropped = len(history) - s.opts.MaxSnapshots
		history = history[dropped:]
	}

	result := SaveResult{
		Key:      key,
		Snapshot: snapshot,
		Length:   len(history),
		Dropped:  dropped,
		Invalid:  len(report.InvalidFields),
	}

	if err := s.write(ctx, key, history); err != nil {
		result.Err = err
		result.Length = 0
		s.metrics.ObserveStorageFailure("save")
		s.logger.Warn("Failed to save balance snapshot",
			zap.String("key", key),
			zap.Error(err),
		)
		return result
	}

	s.metrics.ObserveSave(dropped, result.Invalid)
	s.logger.Info("Saved balance snapshot",
		zap.String("key", key),
		zap.String("address_key", snapshot.AddressKey),
		zap.Int("account_count", snapshot.AccountCount),
		zap.Int("history_length", len(history)),
	)

	return result
}

// Get returns the stored history of addresses, empty when there is none or
// it cannot be read.
func (s *HistoryService) Get(ctx context.Context, addresses []string) entities.History {
	key := s.Key(addresses)
	history := s.load(ctx, key)

	s.logger.Debug("Retrieved balance history",
		zap.String("key", key),
		zap.Int("account_count", len(addresses)),
		zap.Int("history_length", len(history)),
	)

	return history
}

// Clear deletes the history of addresses. A missing history is not an error.
func (s *HistoryService) Clear(ctx context.Context, addresses []string) {
	key := s.Key(addresses)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, key); err != nil {
		s.metrics.ObserveStorageFailure("clear")
		s.logger.Warn("Failed to clear balance history",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Cleared balance history",
		zap.String("key", key),
		zap.Int("account_count", len(addresses)),
	)
}

// HistorySummary describes one stored history
type HistorySummary struct {
	Key        string
	AddressKey string
	Length     int
	Last       entities.Snapshot
}

// List describes every stored history under the key prefix. Histories that
// cannot be read are skipped.
func (s *HistoryService) List(ctx context.Context) ([]HistorySummary, error) {
	lister, ok := s.store.(repositories.KeyLister)
	if !ok {
		return nil, ErrListUnsupported
	}

	keys, err := lister.Keys(ctx, s.opts.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list history keys: %w", err)
	}

	summaries := make([]HistorySummary, 0, len(keys))
	for _, key := range keys {
		history := s.load(ctx, key)
		if len(history) == 0 {
			continue
		}
		last := history[len(history)-1]
		summaries = append(summaries, HistorySummary{
			Key:        key,
			AddressKey: last.AddressKey,
			Length:     len(history),
			Last:       last,
		})
	}
	return summaries, nil
}

func (s *HistoryService) load(ctx context.Context, key string) entities.History {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repositories.ErrKeyNotFound) {
			s.metrics.ObserveStorageFailure("get")
			s.logger.Warn("Failed to read balance history, treating as empty",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return entities.History{}
	}

	var history entities.History
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		s.metrics.ObserveStorageFailure("decode")
		s.logger.Warn("Malformed balance history, treating as empty",
			zap.String("key", key),
			zap.Error(err),
		)
		return entities.History{}
	}
	if history == nil {
		history = entities.History{}
	}
	return history
}

func (s *HistoryService) write(ctx context.Context, key string, history entities.History) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := s.store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}
