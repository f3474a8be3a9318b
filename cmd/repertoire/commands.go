package main

import (
	"context"
	"os"

	"repertoire/internal/core/version"
	"repertoire/internal/modkit"
	"repertoire/internal/platform/config"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/logger"
	"repertoire/internal/platform/runlog"
	"repertoire/internal/platform/store"

	"github.com/spf13/cobra"
)

// flagEnv maps a command flag onto the environment key its module reads
type flagEnv struct {
	flag string
	env  string
}

// bridge copies every flag the user set onto its env key so FromConfig sees it
// flags left at their default keep whatever the environment already holds
func bridge(cmd *cobra.Command, pairs ...flagEnv) {
	for _, p := range pairs {
		f := cmd.Flags().Lookup(p.flag)
		if f == nil || !f.Changed {
			continue
		}
		_ = os.Setenv(p.env, f.Value.String())
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "repertoire",
		Short:         "Identify, collapse and cluster immune receptor sequences",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if logLevel != "" {
				_ = os.Setenv("LOG_LEVEL", logLevel)
			}
			logger.Init(logger.FromEnv())

			// one run id per invocation so chained stages share it in the log
			ctx, _ := runlog.NewRunID(cmd.Context())
			cmd.SetContext(ctx)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "trace|debug|info|warn|error (default LOG_LEVEL)")

	root.AddCommand(
		newIdentifyCmd(),
		newCollapseCmd(),
		newClusterCmd(),
		newRenderTreesCmd(),
		newExportCmd(),
		newImportCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build stamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Println(version.Info("repertoire").String())
			return nil
		},
	}
}

// runtime is the store and module deps one command works with
type runtime struct {
	st   *store.Store
	deps modkit.Deps
	log  *logger.Logger
}

// openRuntime opens postgres (required) and clickhouse (when SERVICE_CH_DBURL is set)
func openRuntime(ctx context.Context, tag string) (*runtime, error) {
	root := config.New()
	cfg, err := store.FromConfig(root, "repertoire", tag, 8)
	if err != nil {
		return nil, err
	}
	l := logger.Get()
	st, err := store.Open(ctx, cfg, store.WithLogger(*l))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "open store")
	}
	return &runtime{
		st:   st,
		log:  l,
		deps: modkit.Deps{Cfg: root, PG: st.PG, CH: st.CH, Log: *l},
	}, nil
}

func (rt *runtime) Close() {
	if err := rt.st.Close(context.Background()); err != nil {
		rt.log.Error().Err(err).Msg("failed to close store")
	}
}

// exitCode separates bad invocations from runtime failures
func exitCode(err error) int {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeConfiguration, perr.ErrorCodeInvalidArgument, perr.ErrorCodeValidation:
		return 2
	default:
		return 1
	}
}
