package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/app"
	"github.com/tigerroll/recordhub/internal/migration"
)

func newMigrateCmd(options []fx.Option) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply or inspect the database schema",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			var m migration.Migrator
			return app.Execute(cmd.Context(), options, func(ctx context.Context) error {
				switch action {
				case "up":
					return m.Up(ctx)
				case "down":
					return m.Down(ctx)
				case "version":
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
					return nil
				}
				return fmt.Errorf("unknown migrate action %q", action)
			}, &m)
		},
	}
}
