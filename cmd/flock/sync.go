package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the local cache from the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, cleanup, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			stats, err := repo.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "synced %d, pruned %d\n", stats.Synced, stats.Pruned)
			return nil
		},
	}
}
