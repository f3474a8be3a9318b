package main

import (
	"repertoire/internal/platform/store/schema"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded postgres schema, and the clickhouse one when configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, "migrate")
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := schema.Apply(ctx, rt.st.PG); err != nil {
				return err
			}
			if err := schema.ApplyCH(ctx, rt.st.CH); err != nil {
				return err
			}
			rt.log.Info().
				Int("pg_statements", len(schema.Postgres())).
				Bool("clickhouse", rt.st.CH != nil).
				Msg("migrate: schema applied")
			return nil
		},
	}
}
