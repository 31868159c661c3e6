package services

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
)

// BuildReport describes numeric fields that could not be parsed while
// building a snapshot. Every such field counts as zero.
type BuildReport struct {
	InvalidFields []string
}

// SnapshotBuilder turns an accounts response into a balance snapshot
type SnapshotBuilder struct {
	logger *zap.Logger
}

// NewSnapshotBuilder creates a new snapshot builder
func NewSnapshotBuilder(logger *zap.Logger) *SnapshotBuilder {
	return &SnapshotBuilder{logger: logger}
}

// Build sums balances and unrealized PnL across accounts. Unparseable
// amounts are treated as zero, the same way for every summed field.
func (b *SnapshotBuilder) Build(addresses []string, accounts []entities.Account, now time.Time) (entities.Snapshot, BuildReport) {
	var report BuildReport

	parse := func(field, address string, amount entities.Amount) decimal.Decimal {
		d, ok := amount.Decimal()
		if !ok {
			report.InvalidFields = append(report.InvalidFields, address+"."+field)
		}
		return d
	}

	totalBalance := decimal.Zero
	totalPnL := decimal.Zero
	abstracts := make([]entities.AccountAbstract, 0, len(accounts))

	for _, acc := range accounts {
		balance := parse("total_asset_value", acc.L1Address, acc.TotalAssetValue)
		totalBalance = totalBalance.Add(balance)

		for _, pos := range acc.Positions {
			totalPnL = totalPnL.Add(parse("positions."+pos.Symbol+".unrealized_pnl", acc.L1Address, pos.UnrealizedPnL))
		}

		abstracts = append(abstracts, entities.AccountAbstract{
			Address:   acc.L1Address,
			Balance:   balance.InexactFloat64(),
			Positions: len(acc.Positions),
		})
	}

	if len(report.InvalidFields) > 0 && b.logger != nil {
		b.logger.Warn("Unparseable amounts counted as zero",
			zap.Strings("fields", report.InvalidFields),
		)
	}

	return entities.Snapshot{
		Timestamp:    now.UTC().Format(entities.SnapshotTimeLayout),
		TotalBalance: totalBalance.InexactFloat64(),
		TotalPnL:     totalPnL.InexactFloat64(),
		AccountCount: len(accounts),
		AddressKey:   AddressKey(addresses),
		Accounts:     abstracts,
	}, report
}
