package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestCompact(t *testing.T) {
	cases := map[string]string{
		"SELECT id\n\t  FROM clones\r\n WHERE subject_id = $1": "SELECT id FROM clones WHERE subject_id = $1",
		"  DELETE FROM clone_trees  ":                          "DELETE FROM clone_trees",
		"":                                                     "",
	}
	for in, want := range cases {
		if got := compact(in); got != want {
			t.Fatalf("compact(%q) = %q, want %q", in, got, want)
		}
	}
}

type traceLine struct {
	Level     string  `json:"level"`
	ElapsedMS float64 `json:"elapsed_ms"`
	Slow      bool    `json:"slow"`
	SQL       string  `json:"sql"`
	NArgs     int     `json:"nargs"`
	Args      []any   `json:"args"`
	Error     string  `json:"error"`
	Component string  `json:"component"`
}

func trace(t *testing.T, ev QueryEvent) traceLine {
	t.Helper()
	var buf bytes.Buffer
	// the root level must not hide traces
	Tracer(zerolog.New(&buf).Level(zerolog.ErrorLevel)).OnQuery(context.Background(), ev)
	var line traceLine
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return line
}

func TestTracer_DebugLine(t *testing.T) {
	line := trace(t, QueryEvent{
		SQL:       "SELECT id\n  FROM samples WHERE name = $1",
		Args:      []any{"S1"},
		ElapsedUS: 2500,
	})
	if line.Level != "debug" || line.Component != "pg" || line.Slow {
		t.Fatalf("line = %+v", line)
	}
	if line.SQL != "SELECT id FROM samples WHERE name = $1" || line.ElapsedMS != 2.5 {
		t.Fatalf("line = %+v", line)
	}
	if line.NArgs != 1 || len(line.Args) != 1 || line.Args[0] != "S1" {
		t.Fatalf("args = %+v", line.Args)
	}
}

func TestTracer_SlowOrFailedWarns(t *testing.T) {
	if l := trace(t, QueryEvent{SQL: "x", Slow: true}); l.Level != "warn" || !l.Slow {
		t.Fatalf("slow line = %+v", l)
	}
	if l := trace(t, QueryEvent{SQL: "x", Err: errors.New("deadlock detected")}); l.Level != "warn" || l.Error != "deadlock detected" {
		t.Fatalf("failed line = %+v", l)
	}
}

func TestTracer_LongArgListsOnlyCount(t *testing.T) {
	members := make([]any, maxTracedArgs+1)
	l := trace(t, QueryEvent{SQL: "INSERT INTO clone_members", Args: members})
	if l.NArgs != maxTracedArgs+1 || l.Args != nil {
		t.Fatalf("line = %+v", l)
	}
}
