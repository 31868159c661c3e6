// Package render turns accounts and balance history into dashboard view
// models. Every function is pure; the only state is the DisplayState the
// caller passes in.
package render

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
)

// NoAccountsMessage is shown when a check returned no accounts
const NoAccountsMessage = "조회된 계정이 없습니다."

// neutralThreshold is the net position below which a symbol counts as hedged
const neutralThreshold = 0.01

var accountColors = []string{
	"#8b5cf6", "#3b82f6", "#10b981", "#f59e0b",
	"#ef4444", "#6366f1", "#14b8a6", "#f97316",
}

// Options tune rendering
type Options struct {
	Location   *time.Location
	HistoryKey string
}

// Dashboard is the full view model of one render
type Dashboard struct {
	View            entities.ViewMode `json:"view"`
	Empty           bool              `json:"empty"`
	Message         string            `json:"message,omitempty"`
	Addresses       []string          `json:"addresses,omitempty"`
	HistoryKey      string            `json:"history_key,omitempty"`
	HistoryStats    *HistoryStats     `json:"history_stats,omitempty"`
	HistoryChart    *ChartConfig      `json:"history_chart,omitempty"`
	Comparison      *Comparison       `json:"comparison,omitempty"`
	PieChart        *ChartConfig      `json:"pie_chart,omitempty"`
	PositionSummary []SummaryItem     `json:"position_summary,omitempty"`
	Table           []TableRow        `json:"table,omitempty"`
	Cards           []AccountCard     `json:"cards,omitempty"`
}

// Comparison holds the account comparison section
type Comparison struct {
	TotalAssets    float64       `json:"total_assets"`
	TotalPnL       float64       `json:"total_pnl"`
	TotalPositions int           `json:"total_positions"`
	AccountCount   int           `json:"account_count"`
	Accounts       []AccountStat `json:"accounts"`
}

// AccountStat compares one account against the others
type AccountStat struct {
	Rank            int     `json:"rank"`
	Address         string  `json:"address"`
	ShortAddress    string  `json:"short_address"`
	TotalBalance    float64 `json:"total_balance"`
	AssetPercentage float64 `json:"asset_percentage"`
	TotalPnL        float64 `json:"total_pnl"`
	PnLPercentage   float64 `json:"pnl_percentage"`
	OpenPositions   int     `json:"open_positions"`
	CrossAssetValue float64 `json:"cross_asset_value"`
}

// SummaryItem is the net exposure of one symbol across accounts
type SummaryItem struct {
	Symbol      string  `json:"symbol"`
	NetPosition float64 `json:"net_position"`
	TotalValue  float64 `json:"total_value"`
	LongCount   int     `json:"long_count"`
	ShortCount  int     `json:"short_count"`
	Bias        string  `json:"bias"`
	Neutral     bool    `json:"neutral"`
}

// LiquidationRisk is the distance to liquidation of a position
type LiquidationRisk struct {
	Percent   float64 `json:"percent"`
	Level     string  `json:"level"`
	Direction string  `json:"direction"`
}

// PositionView is the rendered form of one position
type PositionView struct {
	Symbol           string           `json:"symbol"`
	Side             string           `json:"side"`
	Size             float64          `json:"size"`
	EntryPrice       float64          `json:"entry_price"`
	CurrentPrice     *float64         `json:"current_price,omitempty"`
	Value            float64          `json:"value"`
	PnL              float64          `json:"pnl"`
	PnLPercentage    float64          `json:"pnl_percentage"`
	Leverage         string           `json:"leverage"`
	LiquidationPrice float64          `json:"liquidation_price"`
	Risk             *LiquidationRisk `json:"risk,omitempty"`
}

// TableRow is one position row of the table view
type TableRow struct {
	AccountIndex     int    `json:"account_index"`
	AccountAddress   string `json:"account_address"`
	AccountShort     string `json:"account_short"`
	AccountTypeLabel string `json:"account_type_label"`
	Color            string `json:"color"`
	PositionView
}

// AccountCard is one account of the card view
type AccountCard struct {
	Index           int            `json:"index"`
	Address         string         `json:"address"`
	TypeLabel       string         `json:"type_label"`
	Main            bool           `json:"main"`
	TotalBalance    float64        `json:"total_balance"`
	CrossAssetValue float64        `json:"cross_asset_value"`
	Positions       []PositionView `json:"positions"`
}

// SwitchView returns state with the view changed. Cached results are kept
// so the caller can re-render without fetching again.
func SwitchView(state entities.DisplayState, view entities.ViewMode) entities.DisplayState {
	state.CurrentView = view
	return state
}

// BuildDashboard renders the last results held in state together with the
// stored history of the same address set.
func BuildDashboard(state entities.DisplayState, history entities.History, opts Options) Dashboard {
	view := state.CurrentView
	if view == "" {
		view = entities.ViewTable
	}

	d := Dashboard{
		View:       view,
		Addresses:  state.LastAddresses,
		HistoryKey: opts.HistoryKey,
	}

	if len(state.LastAccounts) == 0 {
		d.Empty = true
		d.Message = NoAccountsMessage
		return d
	}

	if len(history) > 1 {
		d.HistoryStats = Stats(history)
		d.HistoryChart = HistoryChart(history, opts.Location)
	}

	d.Comparison = Compare(state.LastAccounts)
	d.PieChart = DistributionChart(d.Comparison.Accounts, d.Comparison.TotalAssets)
	d.PositionSummary = Summarize(state.LastPositionSummary)

	prices := parseMarketPrices(state.LastMarketPrices)
	if view == entities.ViewCard {
		d.Cards = Cards(state.LastAccounts, prices)
	} else {
		d.Table = Table(state.LastAccounts, prices)
	}

	return d
}

// Compare computes per-account stats ranked by PnL, highest first
func Compare(accounts []entities.Account) *Comparison {
	c := &Comparison{AccountCount: len(accounts)}

	stats := make([]AccountStat, 0, len(accounts))
	for _, acc := range accounts {
		st := AccountStat{
			Address:         acc.L1Address,
			ShortAddress:    shortAddress(acc.L1Address),
			TotalBalance:    acc.TotalAssetValue.Float(),
			CrossAssetValue: acc.CrossAssetValue.Float(),
			OpenPositions:   len(acc.Positions),
		}
		positionValue := 0.0
		for _, pos := range acc.Positions {
			st.TotalPnL += pos.UnrealizedPnL.Float()
			positionValue += pos.PositionValue.Float()
		}
		if positionValue > 0 {
			st.PnLPercentage = st.TotalPnL / positionValue * 100
		}

		c.TotalAssets += st.TotalBalance
		c.TotalPnL += st.TotalPnL
		c.TotalPositions += st.OpenPositions
		stats = append(stats, st)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalPnL > stats[j].TotalPnL
	})
	for i := range stats {
		stats[i].Rank = i + 1
		stats[i].AssetPercentage = percentOf(stats[i].TotalBalance, c.TotalAssets)
	}
	c.Accounts = stats

	return c
}

// Summarize orders the per-symbol position summary by symbol
func Summarize(summary map[string]entities.PositionSummary) []SummaryItem {
	if len(summary) == 0 {
		return nil
	}

	items := make([]SummaryItem, 0, len(summary))
	for symbol, s := range summary {
		item := SummaryItem{
			Symbol:      symbol,
			NetPosition: s.NetPosition,
			TotalValue:  s.TotalValue,
			LongCount:   s.LongCount,
			ShortCount:  s.ShortCount,
		}
		switch {
		case math.Abs(s.NetPosition) < neutralThreshold:
			item.Neutral = true
			item.Bias = "neutral"
		case s.NetPosition > 0:
			item.Bias = "long-bias"
		default:
			item.Bias = "short-bias"
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Symbol < items[j].Symbol
	})
	return items
}

// Table flattens every position into rows sorted by symbol. Accounts sharing
// an L1 address share an index and colour.
func Table(accounts []entities.Account, prices map[string]float64) []TableRow {
	indexes := walletIndexes(accounts)

	var rows []TableRow
	for _, acc := range accounts {
		idx := indexes[acc.L1Address]
		for _, pos := range acc.Positions {
			rows = append(rows, TableRow{
				AccountIndex:     idx,
				AccountAddress:   acc.L1Address,
				AccountShort:     strconv.Itoa(idx) + "_" + addressSlice(acc.L1Address, 2, 6),
				AccountTypeLabel: acc.TypeLabel(),
				Color:            accountColors[(idx-1)%len(accountColors)],
				PositionView:     positionView(pos, prices),
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}

// Cards renders one card per account in response order
func Cards(accounts []entities.Account, prices map[string]float64) []AccountCard {
	indexes := walletIndexes(accounts)

	cards := make([]AccountCard, 0, len(accounts))
	for _, acc := range accounts {
		positions := make([]PositionView, 0, len(acc.Positions))
		for _, pos := range acc.Positions {
			positions = append(positions, positionView(pos, prices))
		}
		cards = append(cards, AccountCard{
			Index:           indexes[acc.L1Address],
			Address:         acc.L1Address,
			TypeLabel:       acc.TypeLabel(),
			Main:            acc.AccountType == 0,
			TotalBalance:    acc.TotalAssetValue.Float(),
			CrossAssetValue: acc.CrossAssetValue.Float(),
			Positions:       positions,
		})
	}
	return cards
}

func positionView(pos entities.Position, prices map[string]float64) PositionView {
	pnl := pos.UnrealizedPnL.Float()
	value := pos.PositionValue.Float()

	v := PositionView{
		Symbol:           pos.Symbol,
		Side:             "Short",
		Size:             pos.Position.Float(),
		EntryPrice:       pos.AvgEntryPrice.Float(),
		CurrentPrice:     pos.CurrentPrice,
		Value:            value,
		PnL:              pnl,
		Leverage:         pos.Leverage,
		LiquidationPrice: pos.LiquidationPrice.Float(),
	}
	if pos.IsLong() {
		v.Side = "Long"
	}
	if v.Leverage == "" {
		v.Leverage = "1x"
	}
	if value > 0 {
		v.PnLPercentage = pnl / value * 100
	}
	if v.CurrentPrice == nil {
		if p, ok := prices[pos.Symbol]; ok {
			v.CurrentPrice = &p
		}
	}
	if pos.LiquidationPercent != nil {
		v.Risk = liquidationRisk(*pos.LiquidationPercent, pos.IsLong())
	}
	return v
}

func liquidationRisk(percent float64, long bool) *LiquidationRisk {
	percent = math.Abs(percent)
	r := &LiquidationRisk{Percent: percent, Direction: "↑"}
	if long {
		r.Direction = "↓"
	}
	switch {
	case percent < 10:
		r.Level = "danger"
	case percent < 20:
		r.Level = "warning"
	default:
		r.Level = "safe"
	}
	return r
}

func walletIndexes(accounts []entities.Account) map[string]int {
	indexes := make(map[string]int)
	next := 1
	for _, acc := range accounts {
		if _, ok := indexes[acc.L1Address]; !ok {
			indexes[acc.L1Address] = next
			next++
		}
	}
	return indexes
}

// parseMarketPrices keeps the entries that are plain numbers
func parseMarketPrices(raw map[string]json.RawMessage) map[string]float64 {
	prices := make(map[string]float64, len(raw))
	for symbol, msg := range raw {
		var p float64
		if err := json.Unmarshal(msg, &p); err == nil {
			prices[symbol] = p
		}
	}
	return prices
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-6:]
}

func addressSlice(addr string, from, to int) string {
	if from > len(addr) {
		return ""
	}
	if to > len(addr) {
		to = len(addr)
	}
	return addr[from:to]
}
