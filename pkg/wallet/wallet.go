// Package wallet tracks per-currency balances for a simulated participant
// and settles the trades attributed to them.
package wallet

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/quantfold/exsim/pkg/book"
)

// Wallet holds currency balances. Orders are only gated by the wallet before
// insertion; the order store itself never consults it.
type Wallet struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal
}

// New returns an empty wallet.
func New() *Wallet {
	return &Wallet{balances: make(map[string]decimal.Decimal)}
}

// Deposit adds amount to the currency's balance. Negative deposits are
// rejected.
func (w *Wallet) Deposit(currency string, amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("wallet: negative deposit %s %s", amount, currency)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[currency] = w.balances[currency].Add(amount)
	return nil
}

// Balance returns the current balance for a currency (zero if unknown).
func (w *Wallet) Balance(currency string) decimal.Decimal {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balances[currency]
}

// Currencies returns the held currencies in sorted order.
func (w *Wallet) Currencies() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	currencies := make([]string, 0, len(w.balances))
	for c := range w.balances {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	return currencies
}

// Contains reports whether the wallet holds at least amount of the currency.
func (w *Wallet) Contains(currency string, amount decimal.Decimal) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balances[currency].GreaterThanOrEqual(amount)
}

// CanFulfill reports whether the wallet could cover the order: an ask needs
// the base currency amount, a bid needs price x amount of the quote
// currency. Orders on a malformed product are never fulfillable.
func (w *Wallet) CanFulfill(o *book.Order) bool {
	base, quote, err := splitProduct(o.Product)
	if err != nil {
		return false
	}
	switch o.Kind {
	case book.Ask:
		return w.Contains(base, o.Amount)
	case book.Bid:
		return w.Contains(quote, o.Price.Mul(o.Amount))
	default:
		return false
	}
}

// Settle applies an executed trade to the balances. A bid-sale bought the
// base currency with quote; an ask-sale sold base for quote. A settlement
// that would drive a balance negative is refused and leaves the wallet
// unchanged.
func (w *Wallet) Settle(sale *book.Order) error {
	if !sale.Kind.IsSale() {
		return fmt.Errorf("wallet: cannot settle a %s record", sale.Kind)
	}
	base, quote, err := splitProduct(sale.Product)
	if err != nil {
		return fmt.Errorf("wallet: %w", err)
	}
	cost := sale.Price.Mul(sale.Amount)

	w.mu.Lock()
	defer w.mu.Unlock()

	switch sale.Kind {
	case book.BidSale:
		if w.balances[quote].LessThan(cost) {
			return fmt.Errorf("wallet: insufficient %s for bid settlement", quote)
		}
		w.balances[quote] = w.balances[quote].Sub(cost)
		w.balances[base] = w.balances[base].Add(sale.Amount)
	case book.AskSale:
		if w.balances[base].LessThan(sale.Amount) {
			return fmt.Errorf("wallet: insufficient %s for ask settlement", base)
		}
		w.balances[base] = w.balances[base].Sub(sale.Amount)
		w.balances[quote] = w.balances[quote].Add(cost)
	}
	return nil
}

// String renders the balances one currency per line, sorted for stable
// console output.
func (w *Wallet) String() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	currencies := make([]string, 0, len(w.balances))
	for c := range w.balances {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	var b strings.Builder
	for _, c := range currencies {
		fmt.Fprintf(&b, "%s : %s\n", c, w.balances[c])
	}
	return b.String()
}

func splitProduct(product string) (base, quote string, err error) {
	parts := strings.Split(product, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed product %q", product)
	}
	return parts[0], parts[1], nil
}
