package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/app"
	"github.com/tigerroll/recordhub/internal/processor"
)

func newProcessCmd(options []fx.Option) *cobra.Command {
	var (
		taskID uint
		budget int
	)
	cmd := &cobra.Command{
		Use:   "process [--task <id> | --budget <rows>]",
		Short: "Run one processing pass over pending records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var p *processor.Processor
			return app.Execute(cmd.Context(), options, func(ctx context.Context) error {
				var (
					sum processor.Summary
					err error
				)
				if taskID != 0 {
					sum, err = p.ProcessTask(ctx, taskID)
				} else {
					sum, err = p.Run(ctx, budget)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "records: %d written: %d deleted: %d invited: %d failed: %d completed tasks: %v\n",
					sum.Records, sum.Written, sum.Deleted, sum.Invited, sum.Failed, sum.Completed)
				return err
			}, &p)
		},
	}
	cmd.Flags().UintVar(&taskID, "task", 0, "process only this task")
	cmd.Flags().IntVar(&budget, "budget", 0, "maximum number of records (default processor.row_budget)")
	return cmd
}
