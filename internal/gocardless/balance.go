package gocardless

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Selected is the balance chosen for reporting.
type Selected struct {
	Amount    decimal.Decimal
	Currency  string
	Type      string
	Reference string
}

// AmountString formats the amount keeping the scale the API used ("10.50" stays "10.50").
func (s Selected) AmountString() string {
	if exp := s.Amount.Exponent(); exp < 0 {
		return s.Amount.StringFixed(-exp)
	}
	return s.Amount.String()
}

// ChooseBalance picks the first balance whose type appears in preference, in
// preference order, falling back to the first balance returned.
func ChooseBalance(b *Balances, preference []string) (Selected, error) {
	if b == nil || len(b.Balances) == 0 {
		return Selected{}, ErrNoBalances
	}

	byType := make(map[string]Balance, len(b.Balances))
	for _, bal := range b.Balances {
		if bal.BalanceType == "" {
			continue
		}
		// Later duplicates of a type replace earlier ones.
		byType[bal.BalanceType] = bal
	}

	chosen := b.Balances[0]
	for _, t := range preference {
		if bal, ok := byType[t]; ok {
			chosen = bal
			break
		}
	}

	amt, err := decimal.NewFromString(chosen.BalanceAmount.Amount)
	if err != nil {
		return Selected{}, fmt.Errorf("%w: balance amount %q: %v", ErrInvalidResponse, chosen.BalanceAmount.Amount, err)
	}

	ref := chosen.ReferenceDate
	if ref == "" {
		ref = chosen.LastChangeDateTime
	}
	return Selected{
		Amount:    amt,
		Currency:  chosen.BalanceAmount.Currency,
		Type:      chosen.BalanceType,
		Reference: ref,
	}, nil
}
