// Package job implements the balance-to-sheet run: fetch the account
// balances, pick one, write it as a row, and record what was written.
package job

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/matsen/bankbal/internal/gocardless"
	"github.com/matsen/bankbal/internal/history"
	"github.com/matsen/bankbal/internal/spreadsheet"
)

// BalanceSource fetches account balances.
type BalanceSource interface {
	AccountBalances(ctx context.Context, accountID string) (*gocardless.Balances, error)
}

// Recorder stores written snapshots.
type Recorder interface {
	Record(ctx context.Context, s history.Snapshot) (history.Snapshot, error)
}

// BalanceObserver receives the written balance (metrics).
type BalanceObserver interface {
	ObserveBalance(account, currency, balanceType string, amount float64)
}

// Params identify what to read and where to write it.
type Params struct {
	AccountID     string
	SpreadsheetID string
	Range         string
	Preference    []string
}

// Job wires the collaborators of a run. History and Metrics are optional.
type Job struct {
	Source  BalanceSource
	Sheet   spreadsheet.Updater
	History Recorder
	Metrics BalanceObserver
	Logger  *slog.Logger
	Now     func() time.Time
}

// Run executes one balance sync and returns the snapshot that was written.
// Failures to record history are logged, not returned: the sheet is the
// system of record.
func (j *Job) Run(ctx context.Context, p Params) (history.Snapshot, error) {
	logger := j.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}

	balances, err := j.Source.AccountBalances(ctx, p.AccountID)
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("fetching balances: %w", err)
	}
	chosen, err := gocardless.ChooseBalance(balances, p.Preference)
	if err != nil {
		return history.Snapshot{}, err
	}

	written := now()
	snap := history.Snapshot{
		AccountID:   p.AccountID,
		Amount:      chosen.AmountString(),
		Currency:    chosen.Currency,
		BalanceType: chosen.Type,
		Reference:   chosen.Reference,
		SheetRange:  p.Range,
		WrittenAt:   written,
	}

	row := []string{snap.Amount, snap.Currency, snap.BalanceType, snap.Reference, strconv.FormatInt(written.Unix(), 10)}
	if err := j.Sheet.Update(ctx, p.SpreadsheetID, p.Range, [][]string{row}); err != nil {
		return history.Snapshot{}, err
	}
	logger.Info("balance written", "account", p.AccountID, "range", p.Range, "balance_type", snap.BalanceType)

	if j.Metrics != nil {
		j.Metrics.ObserveBalance(p.AccountID, snap.Currency, snap.BalanceType, chosen.Amount.InexactFloat64())
	}
	if j.History != nil {
		recorded, err := j.History.Record(ctx, snap)
		if err != nil {
			logger.Warn("recording history failed", "error", err)
		} else {
			snap = recorded
		}
	}
	return snap, nil
}
