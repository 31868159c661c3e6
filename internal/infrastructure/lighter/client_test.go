package lighter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/lighter-tracker/internal/config"
)

const accountsBody = `{
	"accounts": [
		{
			"l1_address": "0x1111111111111111111111111111111111111111",
			"account_type": 0,
			"total_asset_value": "100.0",
			"cross_asset_value": 99.5,
			"positions": [
				{"symbol": "BTC", "sign": 1, "position": "0.5", "unrealized_pnl": "5.0", "position_value": "31000"}
			]
		}
	],
	"position_summary": {"BTC": {"net_position": 0.5, "total_value": 31000, "long_count": 1, "short_count": 0}},
	"market_prices": {"BTC": 62000.5}
}`

func setupClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.UpstreamConfig{
		BaseURL:   server.URL + "/",
		Path:      "/lighter/api/fetch_accounts",
		UserAgent: "test-agent",
	}
	return NewClient(cfg, zap.NewNop())
}

func TestClient_FetchAccounts(t *testing.T) {
	var gotBody map[string][]string
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/lighter/api/fetch_accounts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %s", r.Header.Get("Content-Type"))
		}
		if r.UserAgent() != "test-agent" {
			t.Errorf("unexpected user agent %s", r.UserAgent())
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, accountsBody)
	})

	addresses := []string{"0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222"}
	resp, err := client.FetchAccounts(context.Background(), addresses)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gotBody["addresses"]) != 2 {
		t.Errorf("expected both addresses in one request, got %v", gotBody)
	}
	if len(resp.Accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(resp.Accounts))
	}

	acc := resp.Accounts[0]
	if acc.TotalAssetValue != "100.0" || acc.CrossAssetValue != "99.5" {
		t.Errorf("expected string and number amounts, got %q %q", acc.TotalAssetValue, acc.CrossAssetValue)
	}
	if acc.Positions[0].UnrealizedPnL.Float() != 5 {
		t.Errorf("expected pnl 5, got %v", acc.Positions[0].UnrealizedPnL)
	}
	if resp.PositionSummary["BTC"].LongCount != 1 {
		t.Errorf("unexpected summary %+v", resp.PositionSummary)
	}
	if string(resp.MarketPrices["BTC"]) != "62000.5" {
		t.Errorf("unexpected market price %s", resp.MarketPrices["BTC"])
	}
}

func TestClient_StatusError(t *testing.T) {
	calls := 0
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, strings.Repeat("e", 2*maxErrorBody))
	})

	_, err := client.FetchAccounts(context.Background(), []string{"0xAAA"})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", statusErr.StatusCode)
	}
	if len(statusErr.Body) != maxErrorBody {
		t.Errorf("expected body truncated to %d, got %d", maxErrorBody, len(statusErr.Body))
	}
	if calls != 1 {
		t.Errorf("expected no retry, got %d calls", calls)
	}
}

func TestClient_MalformedBody(t *testing.T) {
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	})

	if _, err := client.FetchAccounts(context.Background(), []string{"0xAAA"}); err == nil {
		t.Error("expected decode error")
	}
}

func TestClient_TransportTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	cfg := config.UpstreamConfig{BaseURL: server.URL, Path: "fetch", Timeout: 20 * time.Millisecond}
	client := NewClient(cfg, zap.NewNop())

	if client.Endpoint() != server.URL+"/fetch" {
		t.Errorf("unexpected endpoint %s", client.Endpoint())
	}
	if _, err := client.FetchAccounts(context.Background(), []string{"0xAAA"}); err == nil {
		t.Error("expected timeout error")
	}
}
