package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
)

// ExportHeader is the header row of the history CSV
var ExportHeader = []string{"날짜", "총자산", "PnL", "계정수"}

// ExportFilename returns the download name of a history export
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("lighter-balance-history-%s.csv", now.UTC().Format("2006-01-02"))
}

// ExportHistoryCSV writes one row per snapshot in stored order. Timestamps
// are rendered in loc using the Korean locale layout.
func ExportHistoryCSV(w io.Writer, history entities.History, loc *time.Location) error {
	if len(history) == 0 {
		return ErrNoHistory
	}
	if loc == nil {
		loc = time.UTC
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, snap := range history {
		date := snap.Timestamp
		if t := snap.Time(); !t.IsZero() {
			date = FormatKoreanTime(t.In(loc))
		}
		row := []string{
			date,
			strconv.FormatFloat(snap.TotalBalance, 'f', 2, 64),
			strconv.FormatFloat(snap.TotalPnL, 'f', 2, 64),
			strconv.Itoa(snap.AccountCount),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatKoreanTime formats t like the ko-KR locale: "2024. 1. 15. 오후 3:04:05"
func FormatKoreanTime(t time.Time) string {
	meridiem := "오전"
	hour := t.Hour()
	if hour >= 12 {
		meridiem = "오후"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), meridiem, hour, t.Minute(), t.Second())
}
