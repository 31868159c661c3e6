package entities

import (
	"encoding/json"
	"testing"
)

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Amount
		wantErr bool
	}{
		{"string", `"100.5"`, "100.5", false},
		{"number", `42.25`, "42.25", false},
		{"integer", `7`, "7", false},
		{"null", `null`, "", false},
		{"garbage string kept", `"abc"`, "abc", false},
		{"bool kept raw", `true`, "true", false},
		{"object kept raw", `{}`, "{}", false},
		{"array kept raw", `[1, 2]`, "[1, 2]", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(tt.input), &a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if !tt.wantErr && a != tt.want {
				t.Errorf("expected %q, got %q", tt.want, a)
			}
		})
	}
}

func TestAmount_Decimal(t *testing.T) {
	if d, ok := Amount(" 100.10 ").Decimal(); !ok || d.String() != "100.1" {
		t.Errorf("expected 100.1, got %s (ok=%v)", d, ok)
	}
	if _, ok := Amount("N/A").Decimal(); ok {
		t.Error("expected unparseable amount")
	}
	if _, ok := Amount("").Decimal(); ok {
		t.Error("expected empty amount to be unparseable")
	}
	if f := Amount("bad").Float(); f != 0 {
		t.Errorf("expected 0 for unparseable amount, got %f", f)
	}
	if f := Amount("-12.5").Float(); f != -12.5 {
		t.Errorf("expected -12.5, got %f", f)
	}
}

func TestAccount_TypeLabel(t *testing.T) {
	tests := []struct {
		account Account
		want    string
	}{
		{Account{AccountType: 0}, "Main"},
		{Account{AccountType: 3}, "Sub-3"},
		{Account{AccountType: 1, AccountTypeLabel: "Vault"}, "Vault"},
	}

	for _, tt := range tests {
		if got := tt.account.TypeLabel(); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
}

func TestAccountsResponse_Decode(t *testing.T) {
	body := `{
		"accounts": [{
			"l1_address": "0xabc",
			"account_type": 0,
			"total_asset_value": "1500.25",
			"cross_asset_value": 1200,
			"positions": [{"symbol": "ETH", "sign": -1, "position": "2", "unrealized_pnl": "-3.5"}]
		}],
		"position_summary": {"ETH": {"net_position": -2, "short_count": 1}},
		"market_prices": {"ETH": "3500.1"}
	}`

	var resp AccountsResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	if len(resp.Accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(resp.Accounts))
	}
	acc := resp.Accounts[0]
	if acc.TotalAssetValue.Float() != 1500.25 || acc.CrossAssetValue.Float() != 1200 {
		t.Errorf("unexpected values %s %s", acc.TotalAssetValue, acc.CrossAssetValue)
	}
	if acc.Positions[0].IsLong() {
		t.Error("expected short position")
	}
	if acc.Positions[0].UnrealizedPnL.Float() != -3.5 {
		t.Errorf("unexpected pnl %s", acc.Positions[0].UnrealizedPnL)
	}
	if resp.PositionSummary["ETH"].ShortCount != 1 {
		t.Errorf("unexpected summary %+v", resp.PositionSummary)
	}
}

func TestAccountsResponse_DecodeNonNumericAmounts(t *testing.T) {
	body := `{
		"accounts": [{
			"l1_address": "0xabc",
			"total_asset_value": true,
			"cross_asset_value": "5",
			"positions": [{"symbol": "BTC", "sign": 1, "unrealized_pnl": {}}]
		}],
		"position_summary": {}
	}`

	var resp AccountsResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("expected response to decode, got %v", err)
	}

	acc := resp.Accounts[0]
	if _, ok := acc.TotalAssetValue.Decimal(); ok {
		t.Errorf("expected bool balance to be invalid, got %q", acc.TotalAssetValue)
	}
	if _, ok := acc.Positions[0].UnrealizedPnL.Decimal(); ok {
		t.Errorf("expected object pnl to be invalid, got %q", acc.Positions[0].UnrealizedPnL)
	}
	if acc.CrossAssetValue.Float() != 5 {
		t.Errorf("expected other fields intact, got %s", acc.CrossAssetValue)
	}
}

func TestParseViewMode(t *testing.T) {
	for _, s := range []string{"table", "card"} {
		if v, err := ParseViewMode(s); err != nil || string(v) != s {
			t.Errorf("ParseViewMode(%q) = %q, %v", s, v, err)
		}
	}
	if _, err := ParseViewMode("Card"); err == nil {
		t.Error("expected error for unknown view")
	}
}

func TestDisplayState_HasResults(t *testing.T) {
	s := NewDisplayState()
	if s.CurrentView != ViewTable {
		t.Errorf("expected table view, got %s", s.CurrentView)
	}
	if s.HasResults() {
		t.Error("expected fresh state without results")
	}

	s.LastAddresses = []string{"0xabc"}
	s.LastAccounts = []Account{{L1Address: "0xabc"}}
	if !s.HasResults() {
		t.Error("expected results")
	}
}

func TestSnapshot_Time(t *testing.T) {
	s := Snapshot{Timestamp: "2024-03-07T06:04:05.000Z"}
	if got := s.Time(); got.Hour() != 6 || got.Second() != 5 {
		t.Errorf("unexpected time %s", got)
	}

	if !(Snapshot{Timestamp: "yesterday"}).Time().IsZero() {
		t.Error("expected zero time for bad timestamp")
	}
}
