package main

import (
	"bytes"
	"os"
	"slices"
	"strings"
	"testing"

	perr "repertoire/internal/platform/errors"

	"github.com/spf13/cobra"
)

func TestBridge_OnlyChangedFlags(t *testing.T) {
	t.Setenv("CORE_TEST_WORKERS", "4")
	t.Setenv("CORE_TEST_FORCE", "false")

	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Int("workers", 1, "")
	cmd.Flags().Bool("force", false, "")
	if err := cmd.ParseFlags([]string{"--force"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	bridge(cmd,
		flagEnv{"workers", "CORE_TEST_WORKERS"},
		flagEnv{"force", "CORE_TEST_FORCE"},
		flagEnv{"missing", "CORE_TEST_MISSING"},
	)

	if got := os.Getenv("CORE_TEST_WORKERS"); got != "4" {
		t.Fatalf("workers env overwritten: %q", got)
	}
	if got := os.Getenv("CORE_TEST_FORCE"); got != "true" {
		t.Fatalf("force env = %q", got)
	}
	if _, ok := os.LookupEnv("CORE_TEST_MISSING"); ok {
		t.Fatalf("unknown flag should not set env")
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a, ,b,c ,")
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("got %#v", got)
	}
	if splitCSV("") != nil {
		t.Fatalf("empty input should give nil")
	}
}

func TestMergeNames(t *testing.T) {
	got := mergeNames([]string{"s2", "s1"}, nil, []string{"s1", "s3"})
	if !slices.Equal(got, []string{"s1", "s2", "s3"}) {
		t.Fatalf("got %#v", got)
	}
}

func TestParseIDs(t *testing.T) {
	got, err := parseIDs("3, 10,7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []int64{3, 10, 7}) {
		t.Fatalf("got %#v", got)
	}

	for _, bad := range []string{"x", "1,-2", "0"} {
		if _, err := parseIDs(bad); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("parseIDs(%q) err = %v", bad, err)
		}
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{perr.Configf("missing url"), 2},
		{perr.InvalidArgf("bad id"), 2},
		{perr.New(perr.ErrorCodeValidation, "bad"), 2},
		{perr.New(perr.ErrorCodeDB, "down"), 1},
		{perr.ExternalToolf("tree builder"), 1},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Fatalf("exitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"identify", "collapse", "cluster", "render-trees", "export-clones", "import-clones", "migrate", "version"} {
		if !slices.Contains(names, want) {
			t.Fatalf("missing subcommand %q in %v", want, names)
		}
	}
}

func TestVersionCmd_Prints(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(buf.String(), "repertoire") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestImportCmd_RequiresFile(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"import-clones"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected an argument error")
	}
}

func TestExportCmd_BadIDsFailBeforeStore(t *testing.T) {
	t.Setenv("SERVICE_PGSQL_DBURL", "")
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"export-clones", "--clone-ids", "nope"})
	err := root.Execute()
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}
