package net_test

import (
	"context"
	"testing"

	pnet "repertoire/internal/platform/net"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestRequestID(t *testing.T) {
	base := context.Background()
	if pnet.RequestID(base) != "" {
		t.Fatalf("empty context should have no id")
	}
	if ctx := pnet.WithRequestID(base, ""); ctx != base {
		t.Fatalf("empty id should leave ctx unchanged")
	}

	ctx := pnet.WithRequestID(base, "host/abc-000042")
	if got := pnet.RequestID(ctx); got != "host/abc-000042" {
		t.Fatalf("RequestID = %q", got)
	}
	if got := chimw.GetReqID(ctx); got != "host/abc-000042" {
		t.Fatalf("chi sees %q", got)
	}
}
