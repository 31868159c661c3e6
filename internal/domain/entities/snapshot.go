package entities

import "time"

// SnapshotTimeLayout is the ISO-8601 layout used for snapshot timestamps
const SnapshotTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// AccountAbstract is the per-account part of a snapshot
type AccountAbstract struct {
	Address   string  `json:"address"`
	Balance   float64 `json:"balance"`
	Positions int     `json:"positions"`
}

// Snapshot records the aggregate balance of an address set at one point in
// time. Snapshots are never modified after they are built.
type Snapshot struct {
	Timestamp    string            `json:"timestamp"`
	TotalBalance float64           `json:"totalBalance"`
	TotalPnL     float64           `json:"totalPnL"`
	AccountCount int               `json:"accountCount"`
	AddressKey   string            `json:"addressKey"`
	Accounts     []AccountAbstract `json:"accounts"`
}

// Time parses the snapshot timestamp. Zero time is returned when it cannot be parsed.
func (s Snapshot) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, s.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// History is the chronological sequence of snapshots for one address set
type History []Snapshot
