package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
	"github.com/bimakw/lighter-tracker/internal/domain/repositories"
)

func TestMockKVStore_GetSetDelete(t *testing.T) {
	store := NewMockKVStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, repositories.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := store.Get(ctx, "k")
	if err != nil || v != "v" {
		t.Fatalf("expected v, got %q (%v)", v, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.Raw("k"); ok {
		t.Error("expected key to be deleted")
	}

	if store.CallCount("Get") != 2 {
		t.Errorf("expected 2 Get calls, got %d", store.CallCount("Get"))
	}
}

func TestMockKVStore_Hooks(t *testing.T) {
	store := NewMockKVStore()
	store.SetFunc = func(ctx context.Context, key, value string) error {
		return repositories.ErrQuotaExceeded
	}

	err := store.Set(context.Background(), "k", "v")
	if !errors.Is(err, repositories.ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded, got %v", err)
	}
	if _, ok := store.Raw("k"); ok {
		t.Error("hook should bypass storage")
	}
}

func TestMockAccountsSource(t *testing.T) {
	source := NewMockAccountsSource()
	source.SetResponse(CreateTestResponse(CreateTestAccount()))

	resp, err := source.FetchAccounts(context.Background(), []string{AliceAddress})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Accounts) != 1 {
		t.Errorf("expected 1 account, got %d", len(resp.Accounts))
	}
	if source.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", source.CallCount())
	}
}

func TestCreateTestAccount_Options(t *testing.T) {
	acc := CreateTestAccount(
		WithAddress(BobAddress),
		WithAccountType(2),
		WithTotalAssetValue("42"),
		WithPositions(CreateTestPosition(WithSymbol("ETH"), WithShort())),
	)

	if acc.L1Address != BobAddress {
		t.Errorf("expected %s, got %s", BobAddress, acc.L1Address)
	}
	if acc.TypeLabel() != "Sub-2" {
		t.Errorf("expected Sub-2, got %s", acc.TypeLabel())
	}
	if acc.TotalAssetValue != entities.Amount("42") {
		t.Errorf("expected 42, got %s", acc.TotalAssetValue)
	}
	if len(acc.Positions) != 1 || acc.Positions[0].IsLong() {
		t.Errorf("expected one short position, got %+v", acc.Positions)
	}
}
