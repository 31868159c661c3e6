package repositories

import (
	"context"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
)

// AccountsSource fetches account data for a list of L1 addresses
type AccountsSource interface {
	// FetchAccounts issues one request carrying every address
	FetchAccounts(ctx context.Context, addresses []string) (*entities.AccountsResponse, error)
}
