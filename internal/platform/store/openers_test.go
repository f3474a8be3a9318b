package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff_DoublesUpToCeiling(t *testing.T) {
	want := []time.Duration{150 * time.Millisecond, 300 * time.Millisecond, 600 * time.Millisecond, 1200 * time.Millisecond, 2 * time.Second, 2 * time.Second}
	for i, w := range want {
		if got := backoff(i); got != w {
			t.Fatalf("backoff(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestPGConfig_Defaults(t *testing.T) {
	var c PGConfig
	if c.retries() != 20 || c.pingTimeout() != 3*time.Second {
		t.Fatalf("defaults = %d %v", c.retries(), c.pingTimeout())
	}
	c = PGConfig{ConnectRetries: 2, PingTimeout: time.Second}
	if c.retries() != 2 || c.pingTimeout() != time.Second {
		t.Fatalf("overrides = %d %v", c.retries(), c.pingTimeout())
	}
}

func TestOpenPG_CanceledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{PG: PGConfig{URL: "postgres://u:p@127.0.0.1:1/repertoire?sslmode=disable", ConnectRetries: 5}}
	start := time.Now()
	txr, err := openPG(ctx, cfg, &Store{})
	if !errors.Is(err, context.Canceled) || txr != nil {
		t.Fatalf("openPG = %T, %v", txr, err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("canceled boot should not back off")
	}
}
