package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/matsen/bankbal/internal/dispatch"
	"github.com/matsen/bankbal/internal/history"
	"github.com/spf13/cobra"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var (
		accountID string
		limit     int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List balances previously written to the spreadsheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return dispatch.Usagef("--limit must be positive, got %d", limit)
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}

			snaps := []history.Snapshot{}
			if _, err := os.Stat(cfg.HistoryPath()); err == nil {
				db, err := history.Open(cfg.HistoryPath())
				if err != nil {
					return err
				}
				defer db.Close()
				if snaps, err = db.Recent(cmd.Context(), accountID, limit); err != nil {
					return err
				}
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			if asJSON {
				if snaps == nil {
					snaps = []history.Snapshot{}
				}
				return outputJSON(cmd.OutOrStdout(), snaps)
			}
			return formatHistoryHuman(cmd.OutOrStdout(), snaps)
		},
	}
	cmd.Flags().StringVar(&accountID, "account-id", "", "Only show this account")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of snapshots")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
