package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
)

func TestExportHistoryCSV(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	history := entities.History{
		{Timestamp: "2024-01-15T06:04:05.000Z", TotalBalance: 150, TotalPnL: 5, AccountCount: 2},
		{Timestamp: "2024-01-15T15:30:00.000Z", TotalBalance: 149.999, TotalPnL: -1.234, AccountCount: 2},
	}

	var buf bytes.Buffer
	if err := ExportHistoryCSV(&buf, history, seoul); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"날짜,총자산,PnL,계정수",
		"2024. 1. 15. 오후 3:04:05,150.00,5.00,2",
		"2024. 1. 16. 오전 12:30:00,150.00,-1.23,2",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestExportHistoryCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	err := ExportHistoryCSV(&buf, entities.History{}, time.UTC)
	if !errors.Is(err, ErrNoHistory) {
		t.Errorf("expected ErrNoHistory, got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("expected nothing written")
	}
}

func TestExportHistoryCSV_UnparseableTimestampKept(t *testing.T) {
	var buf bytes.Buffer
	history := entities.History{{Timestamp: "yesterday", TotalBalance: 1, AccountCount: 1}}

	if err := ExportHistoryCSV(&buf, history, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "yesterday,1.00,0.00,1") {
		t.Errorf("expected raw timestamp row, got %q", buf.String())
	}
}

func TestFormatKoreanTime(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 1, 15, 0, 5, 9, 0, time.UTC), "2024. 1. 15. 오전 12:05:09"},
		{time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC), "2024. 12. 1. 오후 12:00:00"},
		{time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC), "2024. 6. 30. 오후 11:59:59"},
	}

	for _, tt := range tests {
		if got := FormatKoreanTime(tt.in); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 3, 7, 23, 0, 0, 0, time.UTC)
	if got := ExportFilename(now); got != "lighter-balance-history-2024-03-07.csv" {
		t.Errorf("unexpected filename %s", got)
	}
}
