// Package storetest provides an in memory TxRunner for service tests
package storetest

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"repertoire/internal/platform/store"
)

// ErrNoRows is what QueryRow scans return
var ErrNoRows = store.ErrNoRows

// Tx records statements and runs Tx bodies inline. Repos bound through a
// fake binder never touch it, so most tests only read Txs
type Tx struct {
	mu    sync.Mutex
	execs []string
	txs   int

	// Err, when set, fails every Tx before fn runs
	Err error

	// Row, when set, answers QueryRow
	Row func(sql string, args ...any) store.Row
}

// Tx implements store.TxRunner
func (t *Tx) Tx(_ context.Context, fn func(q store.RowQuerier) error) error {
	t.mu.Lock()
	t.txs++
	err := t.Err
	t.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(t)
}

// Exec implements store.RowQuerier
func (t *Tx) Exec(_ context.Context, sql string, _ ...any) (store.CommandTag, error) {
	t.mu.Lock()
	t.execs = append(t.execs, sql)
	t.mu.Unlock()
	return Tag(0), nil
}

// Query implements store.RowQuerier with an empty result
func (t *Tx) Query(_ context.Context, _ string, _ ...any) (store.Rows, error) {
	return emptyRows{}, nil
}

// QueryRow implements store.RowQuerier. Without a Row hook Scan reports ErrNoRows
func (t *Tx) QueryRow(_ context.Context, sql string, args ...any) store.Row {
	t.mu.Lock()
	t.execs = append(t.execs, sql)
	hook := t.Row
	t.mu.Unlock()
	if hook != nil {
		return hook(sql, args...)
	}
	return noRow{}
}

// Txs is how many transactions were opened
func (t *Tx) Txs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.txs
}

// Execs returns the statements passed to Exec and QueryRow in call order
func (t *Tx) Execs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.execs...)
}

// Tag is a CommandTag reporting n affected rows
type Tag int64

func (c Tag) String() string      { return "OK" }
func (c Tag) RowsAffected() int64 { return int64(c) }

// Values is a Row that scans vals into the destinations in order
type Values []any

// Scan assigns each value to the matching pointer
func (v Values) Scan(dest ...any) error {
	if len(dest) != len(v) {
		return fmt.Errorf("storetest: scan %d values into %d destinations", len(v), len(dest))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(v[i]))
	}
	return nil
}

type noRow struct{}

func (noRow) Scan(...any) error { return ErrNoRows }

type emptyRows struct{}

func (emptyRows) Next() bool        { return false }
func (emptyRows) Scan(...any) error { return ErrNoRows }
func (emptyRows) Err() error        { return nil }
func (emptyRows) Close()            {}
func (emptyRows) Columns() []string { return nil }
