package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAddresses indicates the address input was empty
	ErrNoAddresses = errors.New("no addresses given")

	// ErrTooManyAddresses indicates the address input exceeded the limit
	ErrTooManyAddresses = errors.New("too many addresses")

	// ErrCheckInProgress indicates a check is already running for the session
	ErrCheckInProgress = errors.New("check already in progress")

	// ErrUpstream indicates the accounts API request failed
	ErrUpstream = errors.New("accounts request failed")

	// ErrNoHistory indicates there is no stored history to act on
	ErrNoHistory = errors.New("no balance history")

	// ErrListUnsupported indicates the history store cannot enumerate keys
	ErrListUnsupported = errors.New("history store cannot list keys")
)

// LimitError reports an address list over the configured limit
type LimitError struct {
	Count int
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%d addresses given, at most %d allowed", e.Count, e.Limit)
}

// Unwrap lets errors.Is match ErrTooManyAddresses
func (e *LimitError) Unwrap() error {
	return ErrTooManyAddresses
}
