package ch

import (
	"context"
	"testing"
)

// TestOpen_LazyConnection returns a client without dialing
func TestOpen_LazyConnection(t *testing.T) {
	t.Parallel()

	cl, err := Open(context.Background(), Config{URL: "clickhouse://127.0.0.1:9000/default", ClientName: "cluster", ClientTag: "test"})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if cl == nil {
		t.Fatalf("Open returned nil client")
	}
	if err := cl.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

// TestOpen_BadDSN surfaces parse errors
func TestOpen_BadDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{URL: "://bad"}); err == nil {
		t.Fatalf("expected error for bad DSN")
	}
}

// TestInsert_EmptyIsNoop never touches the connection
func TestInsert_EmptyIsNoop(t *testing.T) {
	t.Parallel()

	var cl CH
	if err := cl.Insert(context.Background(), "clone_stats", nil); err != nil {
		t.Fatalf("Insert on no rows returned error: %v", err)
	}
}

// TestClose_NilSafe is a no op without a connection
func TestClose_NilSafe(t *testing.T) {
	t.Parallel()

	var cl *CH
	if err := cl.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

// TestBuildClientInfo names product, role and runtime
func TestBuildClientInfo(t *testing.T) {
	t.Parallel()

	info := BuildClientInfo("cluster", " v1 ")
	names := map[string]string{}
	for _, p := range info.Products {
		names[p.Name] = p.Version
	}
	if names["repertoire"] != "v1" || names["role"] != "cluster" {
		t.Fatalf("unexpected products: %+v", info.Products)
	}
	if names["go"] == "" {
		t.Fatalf("go version missing")
	}
}
