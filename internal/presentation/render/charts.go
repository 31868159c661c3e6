package render

import (
	"fmt"
	"math"
	"time"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
)

// ChartConfig mirrors the subset of a Chart.js configuration the dashboard uses
type ChartConfig struct {
	Type    string       `json:"type"`
	Data    ChartData    `json:"data"`
	Options ChartOptions `json:"options"`
}

// ChartData holds labels and datasets
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is one chart series
type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor,omitempty"`
	BackgroundColor any       `json:"backgroundColor,omitempty"`
	BorderWidth     int       `json:"borderWidth,omitempty"`
	Fill            bool      `json:"fill"`
	Tension         float64   `json:"tension,omitempty"`
	YAxisID         string    `json:"yAxisID,omitempty"`
}

// ChartOptions holds the options the dashboard sets
type ChartOptions struct {
	Responsive          bool             `json:"responsive"`
	MaintainAspectRatio bool             `json:"maintainAspectRatio"`
	Scales              map[string]Scale `json:"scales,omitempty"`
	Legend              *Legend          `json:"legend,omitempty"`
}

// Scale configures one axis
type Scale struct {
	Type       string `json:"type,omitempty"`
	Position   string `json:"position,omitempty"`
	TickColor  string `json:"tickColor,omitempty"`
	TickPrefix string `json:"tickPrefix,omitempty"`
	Signed     bool   `json:"signed,omitempty"`
}

// Legend configures the legend entries
type Legend struct {
	Position string        `json:"position"`
	Entries  []LegendEntry `json:"entries,omitempty"`
}

// LegendEntry is one custom legend label
type LegendEntry struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// HistoryStats summarizes a balance history
type HistoryStats struct {
	TrackingPeriod string  `json:"tracking_period"`
	Count          int     `json:"count"`
	MaxBalance     float64 `json:"max_balance"`
	MinBalance     float64 `json:"min_balance"`
}

const (
	balanceColor = "#f9a826"
	pnlColor     = "#10b981"
)

var pieColors = []string{
	"#f9a826", "#10b981", "#3b82f6", "#ef4444", "#8b5cf6",
	"#f59e0b", "#14b8a6", "#6366f1", "#ec4899", "#84cc16",
}

// HistoryChart builds the balance/PnL line chart. It returns nil for fewer
// than two snapshots since a single point has no trend.
func HistoryChart(history entities.History, loc *time.Location) *ChartConfig {
	if len(history) < 2 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	labels := make([]string, len(history))
	balances := make([]float64, len(history))
	pnls := make([]float64, len(history))
	for i, snap := range history {
		labels[i] = chartLabel(snap, loc)
		balances[i] = snap.TotalBalance
		pnls[i] = snap.TotalPnL
	}

	return &ChartConfig{
		Type: "line",
		Data: ChartData{
			Labels: labels,
			Datasets: []Dataset{
				{
					Label:           "총 자산",
					Data:            balances,
					BorderColor:     balanceColor,
					BackgroundColor: "rgba(249, 168, 38, 0.1)",
					BorderWidth:     3,
					Fill:            true,
					Tension:         0.3,
					YAxisID:         "y",
				},
				{
					Label:           "총 PnL",
					Data:            pnls,
					BorderColor:     pnlColor,
					BackgroundColor: "rgba(16, 185, 129, 0.1)",
					BorderWidth:     2,
					Tension:         0.3,
					YAxisID:         "y1",
				},
			},
		},
		Options: ChartOptions{
			Responsive: true,
			Scales: map[string]Scale{
				"y":  {Type: "linear", Position: "left", TickColor: balanceColor, TickPrefix: "$"},
				"y1": {Type: "linear", Position: "right", TickColor: pnlColor, TickPrefix: "$", Signed: true},
			},
		},
	}
}

// DistributionChart builds the pie chart of balances per account
func DistributionChart(stats []AccountStat, totalAssets float64) *ChartConfig {
	if len(stats) == 0 {
		return nil
	}

	labels := make([]string, len(stats))
	values := make([]float64, len(stats))
	colors := make([]string, len(stats))
	entries := make([]LegendEntry, len(stats))
	for i, acc := range stats {
		labels[i] = truncate(acc.Address, 8) + "..."
		values[i] = acc.TotalBalance
		colors[i] = pieColors[i%len(pieColors)]
		entries[i] = LegendEntry{
			Text:  fmt.Sprintf("%s (%.1f%%)", labels[i], percentOf(acc.TotalBalance, totalAssets)),
			Color: colors[i],
		}
	}

	return &ChartConfig{
		Type: "pie",
		Data: ChartData{
			Labels: labels,
			Datasets: []Dataset{{
				Data:            values,
				BackgroundColor: colors,
				BorderColor:     "#1e1f2b",
				BorderWidth:     2,
			}},
		},
		Options: ChartOptions{
			Responsive:          true,
			MaintainAspectRatio: true,
			Legend:              &Legend{Position: "bottom", Entries: entries},
		},
	}
}

// Stats computes the summary shown above the history chart
func Stats(history entities.History) *HistoryStats {
	if len(history) == 0 {
		return nil
	}
	maxBalance := math.Inf(-1)
	minBalance := math.Inf(1)
	for _, snap := range history {
		maxBalance = math.Max(maxBalance, snap.TotalBalance)
		minBalance = math.Min(minBalance, snap.TotalBalance)
	}
	return &HistoryStats{
		TrackingPeriod: TrackingPeriod(history),
		Count:          len(history),
		MaxBalance:     maxBalance,
		MinBalance:     minBalance,
	}
}

// TrackingPeriod describes the time between the first and last snapshot
func TrackingPeriod(history entities.History) string {
	if len(history) < 2 {
		return "방금 시작"
	}

	first := history[0].Time()
	last := history[len(history)-1].Time()
	days := int(math.Ceil(last.Sub(first).Hours() / 24))

	switch {
	case days <= 0:
		return "오늘"
	case days == 1:
		return "1일"
	case days < 30:
		return fmt.Sprintf("%d일", days)
	case days < 365:
		return fmt.Sprintf("%d개월", int(math.Ceil(float64(days)/30)))
	default:
		return fmt.Sprintf("%d년", int(math.Ceil(float64(days)/365)))
	}
}

func chartLabel(snap entities.Snapshot, loc *time.Location) string {
	t := snap.Time()
	if t.IsZero() {
		return snap.Timestamp
	}
	t = t.In(loc)
	return fmt.Sprintf("%d월 %d일 %02d:%02d", int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

func percentOf(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
