package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"flockcore/internal/payment"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write configuration",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	var out string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to a file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if out == "" {
				out = a.configPath
			}
			if err := a.cfg.Save(out); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s\n", out)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&out, "output", "o", "", "destination (defaults to --config)")
	pricing := &cobra.Command{
		Use:   "pricing",
		Short: "Show premium and marketplace prices",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			p := a.cfg.Pricing
			monthly, err := payment.SubscriptionPrice(p, "monthly")
			if err != nil {
				return err
			}
			yearly, err := payment.SubscriptionPrice(p, "yearly")
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "premium monthly: %d %s\n", monthly, p.Currency)
			fmt.Fprintf(a.stdout, "premium yearly:  %d %s\n", yearly, p.Currency)
			fmt.Fprintf(a.stdout, "listing fee:     %d %s\n", payment.ListingFee(p), p.Currency)
			fmt.Fprintf(a.stdout, "transaction fee: %.1f%%\n", p.TransactionFeePercent)
			return nil
		},
	}
	cmd.AddCommand(show, initCmd, pricing)
	return cmd
}
