package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_SERVICE", "repertoire-api")
	t.Setenv("LOG_CALLER", "true")
	t.Setenv("LOG_SAMPLE_EVERY", "5")

	opt := FromEnv()
	if opt.Level != "warn" || opt.Format != "json" || opt.Service != "repertoire-api" {
		t.Fatalf("opt = %+v", opt)
	}
	if !opt.WithCaller || opt.SampleEvery != 5 {
		t.Fatalf("opt = %+v", opt)
	}
}

func TestFromEnv_ServiceDefaultsToBinary(t *testing.T) {
	t.Setenv("LOG_SERVICE", "")
	if FromEnv().Service == "" {
		t.Fatalf("service should default to the binary name")
	}
}

// Init runs once per process, so a single test owns the root logger
func TestRootLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Service: "repertoire", Writer: &buf})

	ctx := WithRequestID(WithRun(context.Background(), "7f1c"), "req-9")
	C(ctx).Info().Int("clones", 3).Msg("cluster done")
	Named("trees").Debug().Msg("cache hit")
	C(WithRun(context.Background(), "")).Info().Msg("no run")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	decode := func(s string) map[string]any {
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			t.Fatalf("decode %q: %v", s, err)
		}
		return m
	}

	first := decode(lines[0])
	if first["run_id"] != "7f1c" || first["request_id"] != "req-9" || first["service"] != "repertoire" || first["clones"] != float64(3) {
		t.Fatalf("first = %v", first)
	}
	if second := decode(lines[1]); second["component"] != "trees" || second["level"] != "debug" {
		t.Fatalf("second = %v", second)
	}
	if third := decode(lines[2]); third["run_id"] != nil {
		t.Fatalf("empty run id should not be tagged: %v", third)
	}

	// later calls do not replace the root
	Init(Options{Level: "error", Writer: &bytes.Buffer{}})
	if Get().GetLevel() != zerolog.DebugLevel {
		t.Fatalf("root replaced by a second Init")
	}
}
