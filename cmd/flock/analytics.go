package main

import (
	"github.com/spf13/cobra"

	"flockcore/internal/navigation"
)

func newAnalyticsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Flock and bloodline statistics",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if !a.cfg.Features.Analytics {
				return navigation.Classify(navigation.ErrPremiumRequired, "Analytics")
			}
			return nil
		},
	}

	var owner string
	lifecycle := &cobra.Command{
		Use:   "lifecycle",
		Short: "Stage counts, growth and survival for a flock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, cleanup, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			stats, err := repo.LifecycleAnalytics(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return a.printJSON(stats)
		},
	}
	lifecycle.Flags().StringVar(&owner, "owner", "", "owner ID")

	bloodline := &cobra.Command{
		Use:   "bloodline NAME",
		Short: "Strength and performance of one bloodline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			stats, err := repo.BloodlineAnalytics(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(stats)
		},
	}
	cmd.AddCommand(lifecycle, bloodline)
	return cmd
}
