package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"flockcore/pkg/domain"
)

func newFowlCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fowl",
		Short: "Add, inspect and search birds",
	}
	cmd.AddCommand(
		newFowlAddCmd(a),
		newFowlGetCmd(a),
		newFowlListCmd(a),
		newFowlSearchCmd(a),
		newFowlDeleteCmd(a),
	)
	return cmd
}

func newFowlAddCmd(a *app) *cobra.Command {
	var (
		f       domain.Fowl
		sex     string
		stage   string
		health  string
		hatched string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new bird",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.Sex = domain.Sex(sex)
			f.Stage = domain.LifecycleStage(stage)
			f.Health = domain.HealthStatus(health)
			if hatched != "" {
				at, err := time.Parse(time.DateOnly, hatched)
				if err != nil {
					return fmt.Errorf("--hatched: %w", err)
				}
				f.HatchedAt = &at
			}
			repo, cleanup, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			created, err := repo.AddFowl(cmd.Context(), f).Unwrap()
			if err != nil {
				return err
			}
			return a.printJSON(created)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Name, "name", "", "bird name")
	fl.StringVar(&f.Breed, "breed", "", "breed")
	fl.StringVar(&f.Bloodline, "bloodline", "", "bloodline")
	fl.StringVar(&sex, "sex", "", "male, female or unknown")
	fl.StringVar(&stage, "stage", "", "lifecycle stage")
	fl.StringVar(&health, "health", "", "health status")
	fl.StringVar(&hatched, "hatched", "", "hatch date (YYYY-MM-DD)")
	fl.StringVar(&f.SireID, "sire", "", "sire ID")
	fl.StringVar(&f.DamID, "dam", "", "dam ID")
	fl.StringVar(&f.OwnerID, "owner", "", "owner ID")
	fl.Float64Var(&f.WeightGrams, "weight", 0, "weight in grams")
	fl.Float64Var(&f.GrowthRate, "growth", 0, "growth rate in grams per day")
	fl.StringSliceVar(&f.Traits, "trait", nil, "trait (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newFowlGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one bird",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			f, err := repo.GetFowl(cmd.Context(), args[0]).Unwrap()
			if err != nil {
				return err
			}
			return a.printJSON(f)
		},
	}
}

func newFowlListCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List birds, optionally for one owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, cleanup, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			fowls, err := repo.ListFowls(cmd.Context(), owner).Unwrap()
			if err != nil {
				return err
			}
			return a.printJSON(fowls)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner ID")
	return cmd
}

func newFowlSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM",
		Short: "Search cached birds by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			fowls, err := repo.SearchFowls(cmd.Context(), args[0]).Unwrap()
			if err != nil {
				return err
			}
			return a.printJSON(fowls)
		},
	}
}

func newFowlDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a bird",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			if err := repo.DeleteFowl(cmd.Context(), args[0]).Err(); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "deleted %s\n", args[0])
			return nil
		},
	}
}

func newTreeCmd(a *app) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "tree ID",
		Short: "Show ancestors and descendants of a bird",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			tree, err := repo.FamilyTree(cmd.Context(), args[0], depth)
			if err != nil {
				return err
			}
			return a.printJSON(tree)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "generations to walk (0 uses the default)")
	return cmd
}

func newRecommendCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recommend ID",
		Short: "Rank breeding partners for a bird",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			recs, err := repo.RecommendMates(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return a.printJSON(recs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum recommendations (0 uses the default)")
	return cmd
}
