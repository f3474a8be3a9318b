package main

import (
	"bufio"
	"io"
	"os"
	"strconv"

	perr "repertoire/internal/platform/errors"

	exdom "repertoire/internal/services/exchange/domain"
	exmod "repertoire/internal/services/exchange/module"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var out, ids, subjects, locus string
	cmd := &cobra.Command{
		Use:   "export-clones",
		Short: "Write sequence to clone associations as delimited text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bridge(cmd, flagEnv{"delimiter", "CORE_EXCHANGE_DELIMITER"})
			cloneIDs, err := parseIDs(ids)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := openRuntime(ctx, "export")
			if err != nil {
				return err
			}
			defer rt.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "create %s", out)
				}
				defer f.Close()
				w = f
			}
			bw := bufio.NewWriter(w)

			ex := exmod.New(rt.deps, exmod.FromConfig(rt.deps.Cfg)).Ports().(exmod.Ports).Exchange
			n, err := ex.Export(ctx, bw, exdom.Selection{CloneIDs: cloneIDs, Subjects: splitCSV(subjects), Locus: locus})
			if err != nil {
				return err
			}
			if err := bw.Flush(); err != nil {
				return perr.Wrap(err, perr.ErrorCodeUnknown, "flush export")
			}
			rt.log.Info().Int("rows", n).Str("out", out).Msg("export: done")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	f.StringVar(&ids, "clone-ids", "", "comma separated clone ids")
	f.StringVar(&subjects, "subjects", "", "comma separated subjects")
	f.StringVar(&locus, "locus", "", "only clones of this locus")
	f.String("delimiter", "tab", "tab, comma, semicolon or a single character")
	return cmd
}

func newImportCmd() *cobra.Command {
	var regen bool
	cmd := &cobra.Command{
		Use:   "import-clones FILE",
		Short: "Replace clones of every scope the association file touches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge(cmd, flagEnv{"delimiter", "CORE_EXCHANGE_DELIMITER"})

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open %s", args[0])
				}
				defer f.Close()
				r = f
			}

			ctx := cmd.Context()
			rt, err := openRuntime(ctx, "import")
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := exmod.FromConfig(rt.deps.Cfg)
			ex := exmod.New(rt.deps, opts).Ports().(exmod.Ports).Exchange
			sum, err := ex.Import(ctx, bufio.NewReader(r), exdom.ImportInput{Delimiter: opts.Delimiter, Regen: regen})
			logSummary(rt, sum)
			return err
		},
	}
	f := cmd.Flags()
	f.BoolVar(&regen, "regen", false, "replace scopes that already have clones")
	f.String("delimiter", "tab", "tab, comma, semicolon or a single character")
	return cmd
}

// parseIDs reads a comma separated list of positive ids
func parseIDs(s string) ([]int64, error) {
	var out []int64
	for _, p := range splitCSV(s) {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n <= 0 {
			return nil, perr.InvalidArgf("bad id %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
