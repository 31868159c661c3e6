package entities

import (
	"encoding/json"
	"fmt"
)

// ViewMode selects how accounts are rendered
type ViewMode string

const (
	ViewTable ViewMode = "table"
	ViewCard  ViewMode = "card"
)

// ParseViewMode validates a view name
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case ViewTable, ViewCard:
		return ViewMode(s), nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// DisplayState is the transient state of one dashboard. It lives only as
// long as the process (or session) that owns it.
type DisplayState struct {
	CurrentView         ViewMode
	LastAccounts        []Account
	LastPositionSummary map[string]PositionSummary
	LastMarketPrices    map[string]json.RawMessage
	LastAddresses       []string
}

// NewDisplayState returns the state of a freshly loaded dashboard
func NewDisplayState() DisplayState {
	return DisplayState{CurrentView: ViewTable}
}

// HasResults reports whether a previous check can be re-rendered
func (s DisplayState) HasResults() bool {
	return len(s.LastAccounts) > 0 && len(s.LastAddresses) > 0
}
