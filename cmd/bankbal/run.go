package main

import (
	"fmt"

	"github.com/matsen/bankbal/internal/job"
	"github.com/matsen/bankbal/internal/secrets"
	"github.com/spf13/cobra"
)

func (a *app) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Write the current balance to the spreadsheet",
		Long: `Fetch the account balances, choose one by BALANCE_TYPE_PREFERENCE and
write [amount, currency, balanceType, reference, unix_ts] to GSHEET_RANGE.

Requires GC_ACCOUNT_ID, GSHEET_ID and GSHEET_RANGE.`,
		RunE: a.runSync,
	}
}

func (a *app) runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if err := cfg.RequireRunTarget(); err != nil {
		return err
	}
	ctx := cmd.Context()

	credentialsFile, err := secrets.FindSingleJSON(cfg.GSheetsSecretsDir)
	if err != nil {
		return fmt.Errorf("google sheets secrets: %w", err)
	}
	sheet, err := a.newUpdater(ctx, credentialsFile)
	if err != nil {
		return err
	}

	client, cleanup, err := a.client(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	j := &job.Job{
		Source:  client,
		Sheet:   sheet,
		Metrics: a.metrics,
		Logger:  a.logger,
	}
	if !cfg.HistoryDisabled {
		db, err := a.openHistory(cfg)
		if err != nil {
			a.logger.Warn("history disabled for this run", "error", err)
		} else {
			defer db.Close()
			j.History = db
		}
	}

	snap, err := j.Run(ctx, job.Params{
		AccountID:     cfg.AccountID,
		SpreadsheetID: cfg.SpreadsheetID,
		Range:         cfg.SheetRange,
		Preference:    cfg.BalanceTypePreference,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s %s (%s) to sheet range %s\n",
		snap.Amount, snap.Currency, snap.BalanceType, snap.SheetRange)
	return nil
}
