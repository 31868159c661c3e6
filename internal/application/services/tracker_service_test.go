package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/metrics"
	mocks "github.com/bimakw/lighter-tracker/internal/testutil"
)

func setupTrackerService(source *mocks.MockAccountsSource, store *mocks.MockKVStore, maxAddresses int) (*TrackerService, *metrics.TrackerMetrics) {
	m := metrics.NewTrackerMetrics(prometheus.NewRegistry())
	history := NewHistoryService(store, HistoryOptions{Now: stepClock()}, m, zap.NewNop())
	return NewTrackerService(source, history, maxAddresses, m, zap.NewNop()), m
}

func TestParseAddressInput(t *testing.T) {
	input := " 0xAAA \r\n\n0xBBB,0xCCC ,, \n"

	got := ParseAddressInput(input)
	want := []string{"0xAAA", "0xBBB", "0xCCC"}

	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTrackerService_ValidationBeforeIO(t *testing.T) {
	tests := []struct {
		name      string
		addresses []string
		wantErr   error
	}{
		{"empty", nil, ErrNoAddresses},
		{"only blanks", []string{" ", ""}, ErrNoAddresses},
		{"over limit", []string{"a", "b", "c", "d"}, ErrTooManyAddresses},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := mocks.NewMockAccountsSource()
			store := mocks.NewMockKVStore()
			svc, m := setupTrackerService(source, store, 3)

			_, err := svc.Check(context.Background(), NewSession("s"), tt.addresses)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if source.CallCount() != 0 {
				t.Error("expected no upstream call")
			}
			if len(store.Calls) != 0 {
				t.Error("expected no storage access")
			}
			if got := testutil.ToFloat64(m.ChecksTotal.WithLabelValues("invalid")); got != 1 {
				t.Errorf("expected 1 invalid check, got %v", got)
			}
		})
	}
}

func TestTrackerService_LimitError(t *testing.T) {
	svc, _ := setupTrackerService(mocks.NewMockAccountsSource(), mocks.NewMockKVStore(), 2)

	_, err := svc.Check(context.Background(), NewSession("s"), []string{"a", "b", "c"})

	var limitErr *LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected LimitError, got %v", err)
	}
	if limitErr.Count != 3 || limitErr.Limit != 2 {
		t.Errorf("unexpected limit error %+v", limitErr)
	}
}

func TestTrackerService_DefaultLimit(t *testing.T) {
	svc, _ := setupTrackerService(mocks.NewMockAccountsSource(), mocks.NewMockKVStore(), 0)

	if svc.MaxAddresses() != DefaultMaxAddresses {
		t.Errorf("expected %d, got %d", DefaultMaxAddresses, svc.MaxAddresses())
	}

	addrs := make([]string, DefaultMaxAddresses)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("0x%040d", i)
	}
	if err := svc.ValidateAddresses(addrs); err != nil {
		t.Errorf("expected %d addresses to pass, got %v", DefaultMaxAddresses, err)
	}
	if err := svc.ValidateAddresses(append(addrs, "0xextra")); !errors.Is(err, ErrTooManyAddresses) {
		t.Errorf("expected ErrTooManyAddresses, got %v", err)
	}
}

func TestTrackerService_UpstreamErrorLeavesHistory(t *testing.T) {
	source := mocks.NewMockAccountsSource()
	source.FetchAccountsFunc = func(ctx context.Context, addresses []string) (*entities.AccountsResponse, error) {
		return nil, errors.New("status 500")
	}
	store := mocks.NewMockKVStore()
	svc, m := setupTrackerService(source, store, 0)
	session := NewSession("s")

	_, err := svc.Check(context.Background(), session, []string{"0xAAA"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if source.CallCount() != 1 {
		t.Errorf("expected exactly one request without retry, got %d", source.CallCount())
	}
	if store.CallCount("Set") != 0 || store.CallCount("Get") != 0 {
		t.Error("expected history untouched")
	}
	if session.State().HasResults() {
		t.Error("expected display state untouched")
	}
	if got := testutil.ToFloat64(m.UpstreamErrorsTotal); got != 1 {
		t.Errorf("expected 1 upstream error, got %v", got)
	}

	// The guard is released after a failure
	source.FetchAccountsFunc = nil
	if _, err := svc.Check(context.Background(), session, []string{"0xAAA"}); err != nil {
		t.Errorf("expected retry by caller to succeed, got %v", err)
	}
}

func TestTrackerService_CheckSavesThenReturnsHistory(t *testing.T) {
	source := mocks.NewMockAccountsSource()
	source.SetResponse(mocks.CreateTestResponse(
		mocks.CreateTestAccount(mocks.WithAddress("0xAAA"), mocks.WithTotalAssetValue("100.0"),
			mocks.WithPositions(mocks.CreateTestPosition(mocks.WithPnL("5.0")))),
		mocks.CreateTestAccount(mocks.WithAddress("0xBBB"), mocks.WithTotalAssetValue("50.0")),
	))
	store := mocks.NewMockKVStore()
	svc, m := setupTrackerService(source, store, 0)
	session := NewSession("s")
	ctx := context.Background()

	result, err := svc.Check(ctx, session, []string{" 0xBBB", "0xAAA "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.HistoryKey != "lighter_history_k1hkq1" {
		t.Errorf("unexpected key %s", result.HistoryKey)
	}
	if len(result.History) != 1 {
		t.Fatalf("expected the fresh snapshot in history, got %d", len(result.History))
	}
	if result.History[0].TotalBalance != 150 || result.History[0].TotalPnL != 5 {
		t.Errorf("unexpected snapshot %+v", result.History[0])
	}

	state := session.State()
	if !state.HasResults() || len(state.LastAccounts) != 2 {
		t.Errorf("expected session to cache accounts, got %+v", state)
	}
	if fmt.Sprint(state.LastAddresses) != "[0xBBB 0xAAA]" {
		t.Errorf("expected trimmed addresses in input order, got %v", state.LastAddresses)
	}

	second, err := svc.Check(ctx, session, []string{"0xAAA", "0xBBB"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.History) != 2 {
		t.Errorf("expected 2 snapshots after second check, got %d", len(second.History))
	}
	if got := testutil.ToFloat64(m.SnapshotsSaved); got != 2 {
		t.Errorf("expected 2 saved snapshots, got %v", got)
	}
}

func TestTrackerService_NonNumericAmountsCountAsZero(t *testing.T) {
	body := `{
		"accounts": [
			{"l1_address": "0xAAA", "total_asset_value": true, "positions": [
				{"symbol": "BTC", "sign": 1, "unrealized_pnl": {}},
				{"symbol": "ETH", "sign": -1, "unrealized_pnl": "3.5"}
			]},
			{"l1_address": "0xBBB", "total_asset_value": "50.0", "positions": []}
		],
		"position_summary": {}
	}`
	var resp entities.AccountsResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	source := mocks.NewMockAccountsSource()
	source.SetResponse(&resp)
	svc, m := setupTrackerService(source, mocks.NewMockKVStore(), 0)

	result, err := svc.Check(context.Background(), NewSession("s"), []string{"0xAAA", "0xBBB"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.History) != 1 {
		t.Fatalf("expected a saved snapshot, got %d", len(result.History))
	}
	if snap := result.History[0]; snap.TotalBalance != 50 || snap.TotalPnL != 3.5 || snap.AccountCount != 2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if got := testutil.ToFloat64(m.InvalidAmountsTotal); got != 2 {
		t.Errorf("expected 2 invalid amounts, got %v", got)
	}
}

func TestTrackerService_NoAccountsSkipsSave(t *testing.T) {
	source := mocks.NewMockAccountsSource()
	source.SetResponse(mocks.CreateTestResponse())
	store := mocks.NewMockKVStore()
	svc, _ := setupTrackerService(source, store, 0)

	result, err := svc.Check(context.Background(), NewSession("s"), []string{"0xAAA"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.CallCount("Set") != 0 {
		t.Error("expected no save without accounts")
	}
	if len(result.History) != 0 {
		t.Errorf("expected empty history, got %d", len(result.History))
	}
}

func TestTrackerService_NilResponse(t *testing.T) {
	source := mocks.NewMockAccountsSource()
	source.SetResponse(nil)
	svc, _ := setupTrackerService(source, mocks.NewMockKVStore(), 0)

	result, err := svc.Check(context.Background(), NewSession("s"), []string{"0xAAA"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Response == nil {
		t.Error("expected an empty response, got nil")
	}
}

func TestTrackerService_StorageFailureStillSucceeds(t *testing.T) {
	source := mocks.NewMockAccountsSource()
	source.SetResponse(mocks.CreateTestResponse(mocks.CreateTestAccount()))
	store := mocks.NewMockKVStore()
	store.SetFunc = func(ctx context.Context, key, value string) error {
		return errors.New("disk full")
	}
	svc, m := setupTrackerService(source, store, 0)

	result, err := svc.Check(context.Background(), NewSession("s"), []string{"0xAAA"})
	if err != nil {
		t.Fatalf("expected storage failure to be swallowed, got %v", err)
	}
	if len(result.Response.Accounts) != 1 {
		t.Error("expected accounts despite storage failure")
	}
	if got := testutil.ToFloat64(m.StorageFailuresTotal.WithLabelValues("save")); got != 1 {
		t.Errorf("expected 1 save failure, got %v", got)
	}
}

func TestTrackerService_CheckInProgress(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	source := mocks.NewMockAccountsSource()
	source.FetchAccountsFunc = func(ctx context.Context, addresses []string) (*entities.AccountsResponse, error) {
		close(started)
		<-release
		return mocks.CreateTestResponse(mocks.CreateTestAccount()), nil
	}
	svc, _ := setupTrackerService(source, mocks.NewMockKVStore(), 0)
	session := NewSession("s")

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = svc.Check(context.Background(), session, []string{"0xAAA"})
	}()

	<-started
	_, err := svc.Check(context.Background(), session, []string{"0xAAA"})
	if !errors.Is(err, ErrCheckInProgress) {
		t.Errorf("expected ErrCheckInProgress, got %v", err)
	}

	close(release)
	wg.Wait()
	if firstErr != nil {
		t.Errorf("expected first check to succeed, got %v", firstErr)
	}
	if source.CallCount() != 1 {
		t.Errorf("expected 1 upstream call, got %d", source.CallCount())
	}
}

func TestTrackerService_GuardIsPerSession(t *testing.T) {
	source := mocks.NewMockAccountsSource()
	source.SetResponse(mocks.CreateTestResponse(mocks.CreateTestAccount()))
	svc, m := setupTrackerService(source, mocks.NewMockKVStore(), 0)
	ctx := context.Background()

	busy := NewSession("busy")
	if !busy.tryBegin() {
		t.Fatal("expected to acquire a fresh session")
	}

	if _, err := svc.Check(ctx, busy, []string{"0xAAA"}); !errors.Is(err, ErrCheckInProgress) {
		t.Errorf("expected ErrCheckInProgress, got %v", err)
	}
	if _, err := svc.Check(ctx, NewSession("idle"), []string{"0xAAA"}); err != nil {
		t.Errorf("expected another session to proceed, got %v", err)
	}

	busy.end()
	if _, err := svc.Check(ctx, busy, []string{"0xAAA"}); err != nil {
		t.Errorf("expected check after release to succeed, got %v", err)
	}
	if got := testutil.ToFloat64(m.ChecksTotal.WithLabelValues("busy")); got != 1 {
		t.Errorf("expected 1 busy check, got %v", got)
	}
}

func TestTrackerService_ClearHistory(t *testing.T) {
	store := mocks.NewMockKVStore()
	svc, _ := setupTrackerService(mocks.NewMockAccountsSource(), store, 0)

	if err := svc.ClearHistory(context.Background(), nil); !errors.Is(err, ErrNoAddresses) {
		t.Errorf("expected ErrNoAddresses, got %v", err)
	}
	if err := svc.ClearHistory(context.Background(), []string{"0xAAA"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if store.CallCount("Delete") != 1 {
		t.Errorf("expected 1 delete, got %d", store.CallCount("Delete"))
	}
}
