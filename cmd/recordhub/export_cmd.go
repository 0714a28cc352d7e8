package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/app"
	"github.com/tigerroll/recordhub/internal/export"
)

func newExportCmd(options []fx.Option) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export <task> [--format json|yaml|parquet] [--out <path>|-]",
		Short: "Export a task to a file, stdout, or the configured storage",
		Long:  "Without --out the export is uploaded to export.storage_ref and the object name is printed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			var ex *export.Exporter
			return app.Execute(cmd.Context(), options, func(ctx context.Context) error {
				switch out {
				case "":
					name, err := ex.Upload(ctx, taskID, f)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), name)
					return nil
				case "-":
					return ex.Write(ctx, taskID, f, cmd.OutOrStdout())
				}
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := ex.Write(ctx, taskID, f, file); err != nil {
					file.Close()
					return err
				}
				return file.Close()
			}, &ex)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "export format (json|yaml|parquet)")
	cmd.Flags().StringVar(&out, "out", "", "output file, '-' for stdout; empty uploads to storage")
	return cmd
}
