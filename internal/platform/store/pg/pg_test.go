package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"repertoire/internal/platform/testkit"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dsn = "postgres://repertoire:secret@db:5432/repertoire?sslmode=disable"

func TestOpen_BadURL(t *testing.T) {
	if _, err := Open(context.Background(), Config{URL: "://bad"}, nil, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestOpen_PoolError(t *testing.T) {
	testkit.Serial(t)
	boom := errors.New("pool refused")
	testkit.Swap(t, &newPool, func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error) { return nil, boom })

	if _, err := Open(context.Background(), Config{URL: dsn}, nil, nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestOpen_AppliesConfigThenMutator(t *testing.T) {
	testkit.Serial(t)
	var seen *pgxpool.Config
	testkit.Swap(t, &newPool, func(_ context.Context, pc *pgxpool.Config) (*pgxpool.Pool, error) {
		seen = pc
		return &pgxpool.Pool{}, nil
	})

	p, err := Open(context.Background(), Config{URL: dsn, MaxConns: 8, SlowMs: 500, AppName: "repertoire-api"}, nil, func(pc *pgxpool.Config) {
		if pc.MaxConns != 8 {
			t.Errorf("mutator ran before MaxConns: %d", pc.MaxConns)
		}
		pc.MaxConnIdleTime = time.Minute
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if p.SlowMs != 500 || p.Pool == nil || p.Tracer != nil {
		t.Fatalf("pg = %+v", p)
	}
	if seen.ConnConfig.RuntimeParams["application_name"] != "repertoire-api" {
		t.Fatalf("application_name = %q", seen.ConnConfig.RuntimeParams["application_name"])
	}
	if seen.MaxConnIdleTime != time.Minute || seen.ConnConfig.Database != "repertoire" {
		t.Fatalf("pool config = %+v", seen)
	}
}

func TestClose_NilSafe(t *testing.T) {
	var p *PG
	p.Close()
	(&PG{}).Close()
}
