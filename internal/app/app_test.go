package app

import (
	"context"
	"testing"
	"time"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/cache"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/config"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

func TestNewInferencerDisabled(t *testing.T) {
	cfg := &config.Config{}
	if inf := newInferencer(cfg, utils.NewNopLogger()); inf != nil {
		t.Errorf("expected a nil inferencer, got %#v", inf)
	}

	cfg.OpenRouterAPIKey = "key"
	if inf := newInferencer(cfg, utils.NewNopLogger()); inf == nil {
		t.Error("expected an inferencer when a key is configured")
	}
}

func TestNewFieldCacheFallsBackToMemory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := &config.Config{FieldCacheTTL: time.Minute}
	c, closer := newFieldCache(ctx, cfg, utils.NewNopLogger())
	if _, ok := c.(*cache.MemoryFieldCache); !ok || closer != nil {
		t.Errorf("no redis address: got %T", c)
	}

	cfg.RedisAddr = "127.0.0.1:1"
	c, closer = newFieldCache(ctx, cfg, utils.NewNopLogger())
	if _, ok := c.(*cache.MemoryFieldCache); !ok || closer != nil {
		t.Errorf("unreachable redis: got %T", c)
	}
}

func TestCloseRunsInReverse(t *testing.T) {
	var order []int
	a := &App{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return nil },
	}}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("close order = %v", order)
	}
}
