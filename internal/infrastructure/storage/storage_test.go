package storage

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/bimakw/lighter-tracker/internal/config"
	"github.com/bimakw/lighter-tracker/internal/domain/repositories"
)

func testConfig(backend string) *config.Config {
	return &config.Config{History: config.HistoryConfig{
		Backend:       backend,
		MaxValueBytes: 1024,
	}}
}

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()

	opened, err := Open(ctx, testConfig(BackendMemory), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer opened.Close()

	if opened.Name != BackendMemory {
		t.Errorf("expected memory backend, got %s", opened.Name)
	}
	if err := opened.Store.HealthCheck(ctx); err != nil {
		t.Errorf("expected healthy store: %v", err)
	}
	if _, ok := opened.Store.(repositories.KeyLister); !ok {
		t.Error("expected memory store to list keys")
	}
}

func TestOpen_Redis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := testConfig(BackendRedis)
	cfg.Redis = config.RedisConfig{Host: mr.Host(), Port: portOf(t, mr)}

	opened, err := Open(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer opened.Close()

	if err := opened.Store.Set(ctx, "lighter_history_0", "[]"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := mr.Get("lighter_history_0"); got != "[]" {
		t.Errorf("expected value in redis, got %q", got)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), testConfig("localStorage"), zap.NewNop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func portOf(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("bad miniredis port %q: %v", mr.Port(), err)
	}
	return port
}
