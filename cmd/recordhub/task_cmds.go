package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/app"
	"github.com/tigerroll/recordhub/internal/processor"
	"github.com/tigerroll/recordhub/internal/store"
)

func newActivateCmd(options []fx.Option) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "activate <task>",
		Short: "Activate every unprocessed record of a task and queue it for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			var (
				s   store.Store
				act *processor.Activator
			)
			return app.Execute(cmd.Context(), options, func(ctx context.Context) error {
				actor, err := resolveActor(ctx, s, userID)
				if err != nil {
					return err
				}
				n, err := act.Activate(ctx, actor, taskID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "task %d: %d record(s) activated\n", taskID, n)
				return nil
			}, &s, &act)
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "acting user id (0 for system)")
	return cmd
}

func newReactivateCmd(options []fx.Option) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "reactivate <task> [record...]",
		Short: "Clear the outcome of processed records so they are written again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			recordIDs := make([]uint, 0, len(args)-1)
			for _, a := range args[1:] {
				id, err := parseID(a, "record")
				if err != nil {
					return err
				}
				recordIDs = append(recordIDs, id)
			}
			var (
				s   store.Store
				act *processor.Activator
			)
			return app.Execute(cmd.Context(), options, func(ctx context.Context) error {
				actor, err := resolveActor(ctx, s, userID)
				if err != nil {
					return err
				}
				n, err := act.Reactivate(ctx, actor, taskID, recordIDs...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "task %d: %d record(s) reactivated\n", taskID, n)
				return nil
			}, &s, &act)
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "acting user id (0 for system)")
	return cmd
}

func newResetCmd(options []fx.Option) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "reset <task>",
		Short: "Mark a task RESET so the processor skips it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			var s store.Store
			return app.Execute(cmd.Context(), options, func(ctx context.Context) error {
				actor, err := resolveActor(ctx, s, userID)
				if err != nil {
					return err
				}
				return s.ResetTask(ctx, actor, taskID)
			}, &s)
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "acting user id (0 for system)")
	return cmd
}

func newDeleteCmd(options []fx.Option) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "delete <task>",
		Short: "Delete a task and all of its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			var s store.Store
			return app.Execute(cmd.Context(), options, func(ctx context.Context) error {
				actor, err := resolveActor(ctx, s, userID)
				if err != nil {
					return err
				}
				return s.DeleteTask(ctx, actor, taskID)
			}, &s)
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "acting user id (0 for system)")
	return cmd
}

func newStatusCmd(options []fx.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task>",
		Short: "Show the progress of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			var s store.Store
			return app.Execute(cmd.Context(), options, func(ctx context.Context) error {
				task, err := s.GetTask(ctx, taskID)
				if err != nil {
					return err
				}
				done, err := s.CompletedFraction(ctx, taskID)
				if err != nil {
					return err
				}
				failed, err := s.ErrorFraction(ctx, taskID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "task:       %d (%s, %s)\n", task.ID, task.Kind, task.Filename)
				fmt.Fprintf(out, "status:     %s\n", statusText(task.Status))
				fmt.Fprintf(out, "records:    %d\n", task.RecordCount)
				fmt.Fprintf(out, "processed:  %.1f%%\n", done*100)
				fmt.Fprintf(out, "errors:     %.1f%%\n", failed*100)
				if task.CompletedAt != nil {
					fmt.Fprintf(out, "completed:  %s\n", task.CompletedAt.UTC().Format("2006-01-02 15:04:05"))
				}
				return nil
			}, &s)
		},
	}
}

func statusText(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
