package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/app"
	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/ingest"
	"github.com/tigerroll/recordhub/internal/loader"
	"github.com/tigerroll/recordhub/internal/processor"
	"github.com/tigerroll/recordhub/internal/store"
)

type loadOptions struct {
	OrgID    uint
	UserID   uint
	Kind     string
	Format   string
	Override bool
	Activate bool
}

func newLoadCmd(options []fx.Option) *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:   "load <file> --org <id> [--kind <kind>]",
		Short: "Load a CSV, TSV, XLSX, JSON or YAML payload as a new task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.OrgID == 0 {
				return errors.New("--org is required")
			}
			var kind model.Kind
			if opts.Kind != "" {
				k, err := model.ParseKind(opts.Kind)
				if err != nil {
					return err
				}
				kind = k
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			in := loader.Input{
				Filename: filepath.Base(args[0]),
				Data:     data,
				Kind:     kind,
				Format:   loader.ParseFormat(opts.Format),
			}

			var (
				s   store.Store
				iv  *ingest.Ingestor
				act *processor.Activator
			)
			return app.Execute(cmd.Context(), options, func(ctx context.Context) error {
				actor, err := resolveActor(ctx, s, opts.UserID)
				if err != nil {
					return err
				}
				task, err := iv.Ingest(ctx, actor, opts.OrgID, in, opts.Override)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "task %d: %d %s record(s) from %s\n", task.ID, task.RecordCount, task.Kind, task.Filename)
				if !opts.Activate {
					return nil
				}
				n, err := act.Activate(ctx, actor, task.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "task %d: %d record(s) activated\n", task.ID, n)
				return nil
			}, &s, &iv, &act)
		},
	}

	cmd.Flags().UintVar(&opts.OrgID, "org", 0, "organisation id owning the task")
	cmd.Flags().UintVar(&opts.UserID, "user", 0, "acting user id (0 for system)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "record kind (affiliation|funding|work|peer_review|property|other_id|resource)")
	cmd.Flags().StringVar(&opts.Format, "format", "", "payload format (csv|tsv|xlsx|json|yaml); detected when empty")
	cmd.Flags().BoolVar(&opts.Override, "override", false, "replace the task with the same organisation, kind and filename")
	cmd.Flags().BoolVar(&opts.Activate, "activate", false, "activate the task after loading")
	return cmd
}
