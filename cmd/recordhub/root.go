package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/store"
)

func newRootCmd(options []fx.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "recordhub",
		Short:         "Batch ingestion and reconciliation of research records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newMigrateCmd(options),
		newLoadCmd(options),
		newActivateCmd(options),
		newReactivateCmd(options),
		newResetCmd(options),
		newProcessCmd(options),
		newStatusCmd(options),
		newExportCmd(options),
		newDeleteCmd(options),
		newServeCmd(options),
	)
	return cmd
}

func parseID(s, what string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return uint(id), nil
}

// resolveActor maps --user to an actor; 0 is the system actor.
func resolveActor(ctx context.Context, s store.Store, userID uint) (model.Actor, error) {
	if userID == 0 {
		return model.SystemActor, nil
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return model.Actor{}, err
	}
	return model.Actor{UserID: u.ID, Name: u.Email}, nil
}
