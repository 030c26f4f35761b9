package book

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Matcher crosses standing asks against standing bids for one product and
// timestamp. It borrows the store's records for the duration of a call and
// mutates their residual amounts in place; the trades it returns are newly
// built records owned by the caller.
type Matcher struct {
	store      *Store
	recognized map[string]struct{}
}

// NewMatcher returns a matcher over the store. The console user and the bot
// are recognized as participants by default; trades consumed or provided by
// a recognized owner are attributed to that owner so the caller can settle
// them against a wallet.
func NewMatcher(store *Store) *Matcher {
	return &Matcher{
		store: store,
		recognized: map[string]struct{}{
			SimOwner: {},
			BotOwner: {},
		},
	}
}

// Recognize adds an owner to the recognized-participant set.
func (m *Matcher) Recognize(owner string) {
	m.recognized[owner] = struct{}{}
}

// Match crosses all asks against all bids for (product, timestamp) and
// returns the resulting trades. Either side being empty yields no trades and
// no error.
//
// Asks are walked in ascending price order, bids in descending order; both
// sorts are stable, so equal-price orders keep their bucket insertion order
// and a replay of the same book is reproducible. Every trade executes at the
// ask's price. Residual amounts are written back to the store's records, so
// a partially filled order stays on the book with its remaining amount and
// an exhausted order becomes inert.
func (m *Matcher) Match(product, timestamp string) []*Order {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	asks := m.store.ordersFilteredLocked(Ask, product, timestamp)
	bids := m.store.ordersFilteredLocked(Bid, product, timestamp)

	var sales []*Order
	if len(asks) == 0 || len(bids) == 0 {
		return sales
	}

	sort.SliceStable(asks, func(i, j int) bool {
		return asks[i].Price.LessThan(asks[j].Price)
	})
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].Price.GreaterThan(bids[j].Price)
	})

	// One diagnostic summary per call, attached verbatim to every trade.
	annotation := fmt.Sprintf("max ask: %s | min ask: %s | max bid: %s | min bid: %s",
		asks[len(asks)-1].Price, asks[0].Price, bids[0].Price, bids[len(bids)-1].Price)

	for ai := range asks {
		ask := asks[ai]
		if ask.Amount.Sign() <= 0 {
			continue
		}
	bidScan:
		for bi := range bids {
			bid := bids[bi]
			if bid.Price.LessThan(ask.Price) {
				continue
			}
			if bid.Amount.Sign() <= 0 {
				continue
			}

			sale := &Order{
				Price:      ask.Price,
				Timestamp:  timestamp,
				Product:    product,
				Kind:       AskSale,
				Owner:      DatasetOwner,
				Annotation: annotation,
			}
			if _, ok := m.recognized[bid.Owner]; ok {
				sale.Owner = bid.Owner
				sale.Kind = BidSale
			}
			if _, ok := m.recognized[ask.Owner]; ok {
				// Ask-side attribution wins when both sides are recognized.
				sale.Owner = ask.Owner
				sale.Kind = AskSale
			}

			switch bid.Amount.Cmp(ask.Amount) {
			case 0:
				// Bid exactly clears the ask.
				sale.Amount = ask.Amount
				sales = append(sales, sale)
				bid.Amount = decimal.Zero
				ask.Amount = decimal.Zero
				break bidScan

			case 1:
				// Ask fully consumed; the bid's residual carries into the
				// next ask.
				sale.Amount = ask.Amount
				sales = append(sales, sale)
				bid.Amount = bid.Amount.Sub(ask.Amount)
				ask.Amount = decimal.Zero
				break bidScan

			default:
				// Bid fully consumed; the ask's residual keeps scanning
				// further bids.
				sale.Amount = bid.Amount
				sales = append(sales, sale)
				ask.Amount = ask.Amount.Sub(bid.Amount)
				bid.Amount = decimal.Zero
			}
		}
	}
	return sales
}
