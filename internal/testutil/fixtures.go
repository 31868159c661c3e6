package testutil

import (
	"github.com/bimakw/lighter-tracker/internal/domain/entities"
)

// Common test addresses
const (
	AliceAddress = "0x1111111111111111111111111111111111111111"
	BobAddress   = "0x2222222222222222222222222222222222222222"
	CharlieAddr  = "0x3333333333333333333333333333333333333333"
)

// CreateTestAccount creates a main account with default values
func CreateTestAccount(opts ...AccountOption) entities.Account {
	a := entities.Account{
		L1Address:       AliceAddress,
		AccountType:     0,
		TotalAssetValue: "100.0",
		CrossAssetValue: "100.0",
		Positions:       []entities.Position{},
	}

	for _, opt := range opts {
		opt(&a)
	}

	return a
}

type AccountOption func(*entities.Account)

func WithAddress(addr string) AccountOption {
	return func(a *entities.Account) {
		a.L1Address = addr
	}
}

func WithAccountType(t int) AccountOption {
	return func(a *entities.Account) {
		a.AccountType = t
	}
}

func WithTotalAssetValue(v string) AccountOption {
	return func(a *entities.Account) {
		a.TotalAssetValue = entities.Amount(v)
	}
}

func WithCrossAssetValue(v string) AccountOption {
	return func(a *entities.Account) {
		a.CrossAssetValue = entities.Amount(v)
	}
}

func WithPositions(positions ...entities.Position) AccountOption {
	return func(a *entities.Account) {
		a.Positions = append(a.Positions, positions...)
	}
}

// CreateTestPosition creates a long BTC position with default values
func CreateTestPosition(opts ...PositionOption) entities.Position {
	p := entities.Position{
		MarketID:         1,
		Symbol:           "BTC",
		Sign:             1,
		Position:         "0.5",
		AvgEntryPrice:    "60000",
		PositionValue:    "31000",
		UnrealizedPnL:    "1000",
		LiquidationPrice: "50000",
		Leverage:         "5x",
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

type PositionOption func(*entities.Position)

func WithSymbol(symbol string) PositionOption {
	return func(p *entities.Position) {
		p.Symbol = symbol
	}
}

func WithShort() PositionOption {
	return func(p *entities.Position) {
		p.Sign = -1
	}
}

func WithPnL(v string) PositionOption {
	return func(p *entities.Position) {
		p.UnrealizedPnL = entities.Amount(v)
	}
}

func WithPositionValue(v string) PositionOption {
	return func(p *entities.Position) {
		p.PositionValue = entities.Amount(v)
	}
}

func WithLiquidationPercent(v float64) PositionOption {
	return func(p *entities.Position) {
		p.LiquidationPercent = &v
	}
}

// CreateTestResponse wraps accounts in an accounts API response
func CreateTestResponse(accounts ...entities.Account) *entities.AccountsResponse {
	return &entities.AccountsResponse{
		Accounts:        accounts,
		PositionSummary: map[string]entities.PositionSummary{},
	}
}
