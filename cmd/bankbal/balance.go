package main

import (
	"github.com/matsen/bankbal/internal/gocardless"
	"github.com/spf13/cobra"
)

func (a *app) newBalanceCmd() *cobra.Command {
	var (
		accountID string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print the preferred balance of an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "account-id"); err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			client, cleanup, err := a.client(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			balances, err := client.AccountBalances(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			chosen, err := gocardless.ChooseBalance(balances, cfg.BalanceTypePreference)
			if err != nil {
				return err
			}

			if asJSON {
				return outputJSON(cmd.OutOrStdout(), newBalanceResponse(accountID, chosen))
			}
			formatBalanceHuman(cmd.OutOrStdout(), chosen)
			return nil
		},
	}
	cmd.Flags().StringVar(&accountID, "account-id", "", "Account ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
