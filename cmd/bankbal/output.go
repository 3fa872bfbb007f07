package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/matsen/bankbal/internal/gocardless"
	"github.com/matsen/bankbal/internal/history"
)

// outputJSON writes a value as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// BalanceResponse is the JSON form of a chosen balance.
type BalanceResponse struct {
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	BalanceType string `json:"balance_type"`
	Reference   string `json:"reference"`
}

func newBalanceResponse(accountID string, s gocardless.Selected) BalanceResponse {
	return BalanceResponse{
		AccountID:   accountID,
		Amount:      s.AmountString(),
		Currency:    s.Currency,
		BalanceType: s.Type,
		Reference:   s.Reference,
	}
}

func formatBalanceHuman(w io.Writer, s gocardless.Selected) {
	fmt.Fprintf(w, "%s %s\tbalanceType=%s\tref=%s\n", s.AmountString(), s.Currency, s.Type, s.Reference)
}

func formatInstitutionsHuman(w io.Writer, insts []gocardless.Institution) {
	for _, inst := range insts {
		fmt.Fprintf(w, "%s\t%s\n", inst.ID, inst.Name)
	}
}

func formatHistoryHuman(w io.Writer, snaps []history.Snapshot) error {
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No balances recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WRITTEN\tACCOUNT\tAMOUNT\tTYPE\tREFERENCE\tRANGE")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
			s.WrittenAt.UTC().Format(time.RFC3339), s.AccountID, s.Amount, s.Currency,
			s.BalanceType, s.Reference, s.SheetRange)
	}
	return tw.Flush()
}
