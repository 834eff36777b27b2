package bootstrap

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"wrightstv/internal/platform/config"
)

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":      ":8080",
		"9090":  ":9090",
		":7070": ":7070",
		" 80 ":  ":80",
	}
	for in, want := range cases {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildAPIMemoryStorage(t *testing.T) {
	cfg := config.Default()
	app, err := buildAPI(cfg, slog.Default())
	if err != nil {
		t.Fatalf("build api: %v", err)
	}
	if app.server == nil {
		t.Fatalf("expected server to be wired")
	}
	if app.relay == nil {
		t.Fatalf("expected in-process relay for memory storage")
	}
	if err := app.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBuildAPIRejectsUnknownTieBreak(t *testing.T) {
	cfg := config.Default()
	cfg.TieBreak = "coin_toss"
	if _, err := buildAPI(cfg, slog.Default()); err == nil {
		t.Fatalf("expected tie-break parse error")
	}
}

func TestBuildAPIPostgresRequiresDSN(t *testing.T) {
	cfg := config.Default()
	cfg.StorageDriver = config.StoragePostgres
	if _, err := buildAPI(cfg, slog.Default()); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func TestRelayLoopStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.OutboxPollInterval = 10 * time.Millisecond
	app, err := buildAPI(cfg, slog.Default())
	if err != nil {
		t.Fatalf("build api: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.relay.run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("relay loop returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("relay loop did not stop")
	}
}
