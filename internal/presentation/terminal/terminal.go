// Package terminal prints dashboards for the command line.
package terminal

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/bimakw/lighter-tracker/internal/application/services"
	"github.com/bimakw/lighter-tracker/internal/domain/entities"
	"github.com/bimakw/lighter-tracker/internal/presentation/render"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f9a826"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	gainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981"))
	lossStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3b82f6")).
			Padding(0, 1)
	subCardStyle = cardStyle.BorderForeground(lipgloss.Color("#8b5cf6"))
)

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// Dashboard writes a full dashboard
func Dashboard(w io.Writer, d render.Dashboard) {
	if d.Empty {
		fmt.Fprintln(w, lossStyle.Render(d.Message))
		return
	}

	if d.HistoryStats != nil && d.HistoryChart != nil {
		History(w, d.HistoryStats, d.HistoryChart)
	}
	if d.Comparison != nil {
		Comparison(w, d.Comparison)
	}
	if len(d.PositionSummary) > 0 {
		Summary(w, d.PositionSummary)
	}

	if d.View == entities.ViewCard {
		Cards(w, d.Cards)
	} else {
		Table(w, d.Table)
	}
}

// History writes the history stats and a sparkline of balance and PnL
func History(w io.Writer, stats *render.HistoryStats, chart *render.ChartConfig) {
	fmt.Fprintln(w, titleStyle.Render("잔액 히스토리"))
	fmt.Fprintf(w, "추적 기간: %s  기록 수: %d개  최고: $%.2f  최저: $%.2f\n",
		stats.TrackingPeriod, stats.Count, stats.MaxBalance, stats.MinBalance)

	for _, ds := range chart.Data.Datasets {
		fmt.Fprintf(w, "%-8s %s\n", ds.Label, Sparkline(ds.Data))
	}
	if n := len(chart.Data.Labels); n > 0 {
		fmt.Fprintln(w, mutedStyle.Render(chart.Data.Labels[0]+" → "+chart.Data.Labels[n-1]))
	}
	fmt.Fprintln(w)
}

// Snapshots writes the stored snapshots of one address set, oldest first
func Snapshots(w io.Writer, key string, history entities.History, loc *time.Location) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("히스토리"), mutedStyle.Render(key))
	if len(history) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("저장된 히스토리가 없습니다."))
		return
	}
	if loc == nil {
		loc = time.UTC
	}

	if stats, chart := render.Stats(history), render.HistoryChart(history, loc); chart != nil {
		History(w, stats, chart)
	}

	table := newTable(w, []string{"날짜", "총자산", "PnL", "계정수"})
	for _, snap := range history {
		date := snap.Timestamp
		if t := snap.Time(); !t.IsZero() {
			date = services.FormatKoreanTime(t.In(loc))
		}
		table.Append([]string{
			date,
			fmt.Sprintf("$%.2f", snap.TotalBalance),
			fmt.Sprintf("%+.2f", snap.TotalPnL),
			strconv.Itoa(snap.AccountCount),
		})
	}
	table.Render()
}

// Histories writes one line per stored history
func Histories(w io.Writer, summaries []services.HistorySummary, loc *time.Location) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("저장된 히스토리가 없습니다."))
		return
	}
	if loc == nil {
		loc = time.UTC
	}

	table := newTable(w, []string{"키", "주소", "기록 수", "마지막 기록", "총자산"})
	for _, s := range summaries {
		last := s.Last.Timestamp
		if t := s.Last.Time(); !t.IsZero() {
			last = services.FormatKoreanTime(t.In(loc))
		}
		table.Append([]string{
			s.Key,
			strings.ReplaceAll(s.AddressKey, services.AddressKeySeparator, "\n"),
			strconv.Itoa(s.Length),
			last,
			fmt.Sprintf("$%.2f", s.Last.TotalBalance),
		})
	}
	table.Render()
}

// Comparison writes the account comparison section with distribution bars
func Comparison(w io.Writer, c *render.Comparison) {
	fmt.Fprintln(w, titleStyle.Render("계정 비교 대시보드"))
	fmt.Fprintf(w, "전체 자산: $%.2f  전체 PnL: %s  총 포지션: %d개  계정 수: %d개\n",
		c.TotalAssets, signedMoney(c.TotalPnL), c.TotalPositions, c.AccountCount)

	for _, acc := range c.Accounts {
		bar := strings.Repeat("█", int(math.Round(acc.AssetPercentage/5)))
		fmt.Fprintf(w, "#%-2d %-17s %s (%+.2f%%)  $%.2f %5.1f%% %s\n",
			acc.Rank, acc.ShortAddress, signedMoney(acc.TotalPnL), acc.PnLPercentage,
			acc.TotalBalance, acc.AssetPercentage, mutedStyle.Render(bar))
	}
	fmt.Fprintln(w)
}

// Summary writes the per-symbol net exposure
func Summary(w io.Writer, items []render.SummaryItem) {
	fmt.Fprintln(w, titleStyle.Render("전체 포지션 요약"))

	table := newTable(w, []string{"심볼", "Net Position", "Total Value", "Long/Short", ""})
	for _, it := range items {
		badge := ""
		if it.Neutral {
			badge = "✓ 균형 포지션"
		}
		table.Append([]string{
			it.Symbol,
			fmt.Sprintf("%+.4f", it.NetPosition),
			fmt.Sprintf("$%.2f", it.TotalValue),
			fmt.Sprintf("%d Long / %d Short", it.LongCount, it.ShortCount),
			badge,
		})
	}
	table.Render()
	fmt.Fprintln(w)
}

// Table writes the table view
func Table(w io.Writer, rows []render.TableRow) {
	table := newTable(w, []string{"계정", "심볼", "타입", "수량", "진입", "현재", "가치", "PnL", "레버", "청산", "리스크"})
	for _, r := range rows {
		table.Append([]string{
			fmt.Sprintf("%s (%s)", r.AccountShort, r.AccountTypeLabel),
			r.Symbol,
			r.Side,
			fmt.Sprintf("%.3f", r.Size),
			fmt.Sprintf("$%.3f", r.EntryPrice),
			optionalPrice(r.CurrentPrice, 3),
			fmt.Sprintf("$%.3f", r.Value),
			fmt.Sprintf("%s (%+.2f%%)", signedMoney(r.PnL), r.PnLPercentage),
			r.Leverage,
			fmt.Sprintf("$%.3f", r.LiquidationPrice),
			risk(r.Risk),
		})
	}
	table.Render()
}

// Cards writes the card view
func Cards(w io.Writer, cards []render.AccountCard) {
	for _, c := range cards {
		var b strings.Builder
		fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(fmt.Sprintf("%d_%s", c.Index, c.Address)), c.TypeLabel)
		fmt.Fprintf(&b, "Total: $%.2f  %s\n", c.TotalBalance,
			mutedStyle.Render(fmt.Sprintf("Cross Asset Value: $%.2f", c.CrossAssetValue)))

		if len(c.Positions) == 0 {
			b.WriteString(mutedStyle.Render("포지션이 없습니다."))
		}
		for i, p := range c.Positions {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%-5s %-8s %s  size %.2f  entry $%.2f  now %s  value $%.2f  PnL %s (%+.2f%%)  liq $%.2f",
				p.Side, p.Symbol, p.Leverage, p.Size, p.EntryPrice, optionalPrice(p.CurrentPrice, 2),
				p.Value, signedMoney(p.PnL), p.PnLPercentage, p.LiquidationPrice)
		}

		style := cardStyle
		if !c.Main {
			style = subCardStyle
		}
		fmt.Fprintln(w, style.Render(b.String()))
	}
}

// Sparkline renders values as block characters scaled between min and max
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	var b strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int(math.Round((v - lo) / (hi - lo) * float64(len(sparkTicks)-1)))
		}
		b.WriteRune(sparkTicks[idx])
	}
	return b.String()
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func signedMoney(v float64) string {
	s := fmt.Sprintf("+$%.2f", math.Abs(v))
	if v < 0 {
		s = fmt.Sprintf("-$%.2f", math.Abs(v))
		return lossStyle.Render(s)
	}
	return gainStyle.Render(s)
}

func optionalPrice(p *float64, decimals int) string {
	if p == nil || *p == 0 {
		return "-"
	}
	return fmt.Sprintf("$%.*f", decimals, *p)
}

func risk(r *render.LiquidationRisk) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%s %.1f%% (%s)", r.Direction, r.Percent, r.Level)
}
