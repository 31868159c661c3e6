package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
	"github.com/bimakw/lighter-tracker/internal/domain/repositories"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/metrics"
)

// DefaultMaxAddresses limits one check when no limit is configured
const DefaultMaxAddresses = 100

// CheckResult is everything the renderer needs after a successful check
type CheckResult struct {
	Addresses  []string
	Response   *entities.AccountsResponse
	History    entities.History
	HistoryKey string
	State      entities.DisplayState
}

// TrackerService fetches account data and records balance snapshots
type TrackerService struct {
	source       repositories.AccountsSource
	history      *HistoryService
	maxAddresses int
	logger       *zap.Logger
	metrics      *metrics.TrackerMetrics
}

// NewTrackerService creates a new tracker service
func NewTrackerService(
	source repositories.AccountsSource,
	history *HistoryService,
	maxAddresses int,
	m *metrics.TrackerMetrics,
	logger *zap.Logger,
) *TrackerService {
	if maxAddresses < 1 {
		maxAddresses = DefaultMaxAddresses
	}
	return &TrackerService{
		source:       source,
		history:      history,
		maxAddresses: maxAddresses,
		logger:       logger,
		metrics:      m,
	}
}

// MaxAddresses returns the per-check address limit
func (s *TrackerService) MaxAddresses() int {
	return s.maxAddresses
}

// ParseAddressInput splits free-form input on newlines and commas, trims
// every entry and drops blanks.
func ParseAddressInput(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	return CleanAddresses(fields)
}

// CleanAddresses trims every address and drops blanks, keeping order
func CleanAddresses(addresses []string) []string {
	cleaned := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			cleaned = append(cleaned, addr)
		}
	}
	return cleaned
}

// ValidateAddresses applies the input rules checked before any I/O
func (s *TrackerService) ValidateAddresses(addresses []string) error {
	if len(addresses) == 0 {
		return ErrNoAddresses
	}
	if len(addresses) > s.maxAddresses {
		return &LimitError{Count: len(addresses), Limit: s.maxAddresses}
	}
	return nil
}

// Check fetches the accounts of addresses in one request, records a
// snapshot when at least one account came back, and updates the session.
//
// Validation failures return before any network or storage access. A failed
// request leaves the history untouched and is not retried. A second call on
// the same session while one is pending fails with ErrCheckInProgress.
// History storage failures never fail the check.
func (s *TrackerService) Check(ctx context.Context, session *Session, addresses []string) (*CheckResult, error) {
	addresses = CleanAddresses(addresses)
	if err := s.ValidateAddresses(addresses); err != nil {
		s.metrics.ObserveCheck("invalid")
		return nil, err
	}

	if !session.tryBegin() {
		s.metrics.ObserveCheck("busy")
		return nil, ErrCheckInProgress
	}
	defer session.end()

	start := time.Now()
	resp, err := s.source.FetchAccounts(ctx, addresses)
	s.metrics.ObserveUpstream(time.Since(start).Seconds(), err != nil)
	if err != nil {
		s.metrics.ObserveCheck("upstream_error")
		s.logger.Error("Failed to fetch accounts",
			zap.Int("address_count", len(addresses)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if resp == nil {
		resp = &entities.AccountsResponse{}
	}

	historyKey := s.history.Key(addresses)
	if len(resp.Accounts) > 0 {
		historyKey = s.history.Save(ctx, addresses, resp.Accounts)
	}

	result := &CheckResult{
		Addresses:  addresses,
		Response:   resp,
		History:    s.history.Get(ctx, addresses),
		HistoryKey: historyKey,
		State:      session.remember(addresses, resp),
	}

	s.metrics.ObserveCheck("ok")
	s.logger.Info("Checked accounts",
		zap.String("session", session.ID),
		zap.Int("address_count", len(addresses)),
		zap.Int("account_count", len(resp.Accounts)),
		zap.Int("history_length", len(result.History)),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// History returns the stored history of addresses
func (s *TrackerService) History(ctx context.Context, addresses []string) (string, entities.History) {
	addresses = CleanAddresses(addresses)
	return s.history.Key(addresses), s.history.Get(ctx, addresses)
}

// ClearHistory deletes the stored history of addresses
func (s *TrackerService) ClearHistory(ctx context.Context, addresses []string) error {
	addresses = CleanAddresses(addresses)
	if len(addresses) == 0 {
		return ErrNoAddresses
	}
	s.history.Clear(ctx, addresses)
	return nil
}

// Histories lists every stored history
func (s *TrackerService) Histories(ctx context.Context) ([]HistorySummary, error) {
	return s.history.List(ctx)
}
