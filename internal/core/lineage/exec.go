package lineage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"repertoire/internal/core/fasta"
	perr "repertoire/internal/platform/errors"
)

// Exec runs an external tree builder. Args may reference {in} (aligned FASTA
// of the taxa) and {out} (Newick result); without {out} the tree is read from stdout
type Exec struct {
	Command string
	Args    []string
	// TempDir is where per call scratch directories go; empty means os.TempDir
	TempDir string
}

var _ Builder = (*Exec)(nil)

// Build writes taxa as t0..tn, runs the tool and parses its Newick output
func (e *Exec) Build(ctx context.Context, taxa []Taxon) (*Tree, error) {
	if len(taxa) < 2 {
		return nil, ErrDegenerate
	}
	if e.Command == "" {
		return nil, perr.Configf("lineage: tree builder command is empty")
	}
	dir, err := os.MkdirTemp(e.TempDir, "lineage-*")
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeExternalTool, "lineage: scratch dir")
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "taxa.fasta")
	out := filepath.Join(dir, "tree.nwk")
	index := make(map[string]int, len(taxa))
	recs := make([]fasta.Record, len(taxa))
	for i, t := range taxa {
		id := fmt.Sprintf("t%d", i)
		index[id] = i
		recs[i] = fasta.Record{ID: id, Seq: t.Seq}
	}
	f, err := os.Create(in)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeExternalTool, "lineage: write taxa")
	}
	if err := fasta.Write(f, 0, recs...); err != nil {
		_ = f.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeExternalTool, "lineage: write taxa")
	}
	if err := f.Close(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeExternalTool, "lineage: write taxa")
	}

	toFile := false
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		if strings.Contains(a, "{out}") {
			toFile = true
		}
		args[i] = strings.NewReplacer("{in}", in, "{out}", out).Replace(a)
	}

	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, perr.Wrapf(ctxErr, perr.ErrorCodeExternalTool, "lineage: %s timed out", e.Command)
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, perr.Wrapf(err, perr.ErrorCodeExternalTool, "lineage: %s exited %d: %s",
				e.Command, ee.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeExternalTool, "lineage: run %s", e.Command)
	}

	nwk := stdout.Bytes()
	if toFile {
		if nwk, err = os.ReadFile(out); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeExternalTool, "lineage: read tree")
		}
	}
	return ParseNewick(string(nwk), index)
}

// NewBuilder returns the in-process neighbor joining builder when command is
// empty and an Exec otherwise
func NewBuilder(command string, args []string, tempDir string) Builder {
	if strings.TrimSpace(command) == "" {
		return NJ{}
	}
	return &Exec{Command: command, Args: args, TempDir: tempDir}
}
