package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal value the accounts API sends either as a JSON string
// ("100.0") or as a JSON number. The raw text is kept unparsed.
type Amount string

// UnmarshalJSON accepts strings, numbers and null. Any other JSON value is
// kept as its raw text, which Decimal reports as invalid.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*a = Amount(data)
		return nil
	}
	*a = Amount(n.String())
	return nil
}

// Decimal parses the amount. ok is false when the text is not a number.
func (a Amount) Decimal() (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(string(a)))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Float returns the amount as float64, zero when unparseable
func (a Amount) Float() float64 {
	d, _ := a.Decimal()
	return d.InexactFloat64()
}

// Position is an open position held by an account
type Position struct {
	MarketID              int      `json:"market_id"`
	Symbol                string   `json:"symbol"`
	Sign                  int      `json:"sign"` // 1 long, -1 short
	Position              Amount   `json:"position"`
	AvgEntryPrice         Amount   `json:"avg_entry_price"`
	PositionValue         Amount   `json:"position_value"`
	UnrealizedPnL         Amount   `json:"unrealized_pnl"`
	LiquidationPrice      Amount   `json:"liquidation_price"`
	InitialMarginFraction Amount   `json:"initial_margin_fraction,omitempty"`
	Leverage              string   `json:"leverage,omitempty"`
	CurrentPrice          *float64 `json:"current_price,omitempty"`
	LiquidationPercent    *float64 `json:"liquidation_percent,omitempty"`
}

// IsLong reports whether the position is a long
func (p Position) IsLong() bool {
	return p.Sign == 1
}

// Account is one Lighter account as returned by the accounts API
type Account struct {
	L1Address        string     `json:"l1_address"`
	AccountType      int        `json:"account_type"`
	AccountTypeLabel string     `json:"account_type_label,omitempty"`
	TotalAssetValue  Amount     `json:"total_asset_value"`
	CrossAssetValue  Amount     `json:"cross_asset_value"`
	Positions        []Position `json:"positions"`
}

// TypeLabel returns the display label of the account type
func (a Account) TypeLabel() string {
	if a.AccountTypeLabel != "" {
		return a.AccountTypeLabel
	}
	if a.AccountType == 0 {
		return "Main"
	}
	return fmt.Sprintf("Sub-%d", a.AccountType)
}

// PositionSummary aggregates positions of one symbol across accounts
type PositionSummary struct {
	NetPosition float64  `json:"net_position"`
	TotalValue  float64  `json:"total_value"`
	LongCount   int      `json:"long_count"`
	ShortCount  int      `json:"short_count"`
	Accounts    []string `json:"accounts"`
}

// AccountsResponse is the body returned by the accounts API
type AccountsResponse struct {
	Accounts        []Account                  `json:"accounts"`
	PositionSummary map[string]PositionSummary `json:"position_summary"`
	MarketPrices    map[string]json.RawMessage `json:"market_prices,omitempty"`
}
