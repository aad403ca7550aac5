package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/custodia/wallet-ledger/internal/domain"
)

// BalanceReader is the single aggregate read the calculator needs from the
// ledger store.
type BalanceReader interface {
	AggregateCompleted(ctx context.Context, accountID string) (domain.AccountTotals, error)
}

// Balance derives an account's balance from its completed transactions:
// completed deposits minus completed withdrawals. It is a pure function of
// whatever ledger view it is given. Pass the transaction-bound store to read
// under the same snapshot as a pending write, or the plain store for a
// lock-free read. An account with no completed transactions has balance zero.
func Balance(ctx context.Context, view BalanceReader, accountID string) (decimal.Decimal, error) {
	totals, err := view.AggregateCompleted(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("aggregate completed transactions: %w", err)
	}
	return totals.Net(), nil
}
