package bot

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfold/exsim/params"
	"github.com/quantfold/exsim/pkg/book"
	"github.com/quantfold/exsim/pkg/wallet"
)

const prod = "BTC/USDT"

var stamps = []string{
	"2020/06/01 10:00:00.000000",
	"2020/06/01 10:00:05.000000",
	"2020/06/01 10:00:10.000000",
	"2020/06/01 10:00:15.000000",
	"2020/06/01 10:00:20.000000",
	"2020/06/01 10:00:25.000000",
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// tape builds a store with one bid per timestamp at the given prices. A
// snapshot interval of 2 makes timestamps 0..2 seed the average and
// timestamp 5 produce the first EMA.
func tape(t *testing.T, bidPrices []string) *book.Store {
	t.Helper()
	store := book.NewStore()
	for i, p := range bidPrices {
		store.Insert(book.NewOrder(dec(p), dec("1"), stamps[i], prod, book.Bid))
	}
	return store
}

func testConfig(dealSize float64) params.Bot {
	return params.Bot{
		SnapshotInterval: 2,
		MinFillFraction:  1.0 / 3.0,
		Products: map[string]params.BotProduct{
			prod: {DealSize: dealSize, BidDelta: 0.2, AskDelta: -0.2},
		},
	}
}

func TestRunBuysOnFallingAverage(t *testing.T) {
	store := tape(t, []string{"100", "100", "100", "50", "50", "50"})
	// A matching ask at the snapshot timestamp lets the bot's bid fill.
	store.Insert(book.NewOrder(dec("50"), dec("1"), stamps[5], prod, book.Ask))

	w := wallet.New()
	w.Deposit("USDT", dec("1000"))

	b := New(store, book.NewMatcher(store), w, testConfig(1), zap.NewNop())
	report, err := b.Run(prod)
	if err != nil {
		t.Fatal(err)
	}

	if report.Snapshots != 2 {
		t.Errorf("snapshots = %d, want 2", report.Snapshots)
	}
	if report.Placed != 1 || report.Settled != 1 {
		t.Errorf("placed/settled = %d/%d, want 1/1", report.Placed, report.Settled)
	}

	// The bid filled 1 BTC at the resting ask price of 50.
	if got := w.Balance("BTC"); !got.Equal(dec("1")) {
		t.Errorf("BTC = %s, want 1", got)
	}
	if got := w.Balance("USDT"); !got.Equal(dec("950")) {
		t.Errorf("USDT = %s, want 950", got)
	}
}

func TestRunSellsOnRisingAverage(t *testing.T) {
	store := tape(t, []string{"100", "100", "100", "200", "200", "200"})

	w := wallet.New()
	w.Deposit("BTC", dec("2"))

	b := New(store, book.NewMatcher(store), w, testConfig(1), zap.NewNop())
	report, err := b.Run(prod)
	if err != nil {
		t.Fatal(err)
	}

	if report.Placed != 1 || report.Settled != 1 {
		t.Errorf("placed/settled = %d/%d, want 1/1", report.Placed, report.Settled)
	}

	// The ask went in at 0.9 * 200 and crossed the resting bid at 200.
	if got := w.Balance("BTC"); !got.Equal(dec("1")) {
		t.Errorf("BTC = %s, want 1", got)
	}
	if got := w.Balance("USDT"); !got.Equal(dec("180")) {
		t.Errorf("USDT = %s, want 180", got)
	}
}

func TestRunSleepsOnFlatAverage(t *testing.T) {
	store := tape(t, []string{"100", "100", "100", "100", "100", "100"})

	b := New(store, book.NewMatcher(store), wallet.New(), testConfig(1), zap.NewNop())
	report, err := b.Run(prod)
	if err != nil {
		t.Fatal(err)
	}
	if report.Placed != 0 {
		t.Errorf("placed = %d, want 0", report.Placed)
	}
}

func TestRunWithdrawsSliverFills(t *testing.T) {
	store := tape(t, []string{"100", "100", "100", "50", "50", "50"})
	// The only counterparty covers a sixth of the deal size, below the
	// one-third minimum.
	store.Insert(book.NewOrder(dec("50"), dec("0.5"), stamps[5], prod, book.Ask))

	w := wallet.New()
	w.Deposit("USDT", dec("1000"))

	b := New(store, book.NewMatcher(store), w, testConfig(3), zap.NewNop())
	report, err := b.Run(prod)
	if err != nil {
		t.Fatal(err)
	}

	if report.Settled != 0 || report.Withdrawn != 1 {
		t.Errorf("settled/withdrawn = %d/%d, want 0/1", report.Settled, report.Withdrawn)
	}
	if got := w.Balance("USDT"); !got.Equal(dec("1000")) {
		t.Errorf("USDT = %s, want untouched 1000", got)
	}

	// The withdrawn bid no longer rests in the book.
	for _, o := range store.OrdersAt(stamps[5]) {
		if o.Owner == book.BotOwner && o.Kind == book.Bid {
			t.Errorf("bot bid still resting: %s", o)
		}
	}
}

func TestRunUnknownProduct(t *testing.T) {
	store := tape(t, []string{"100"})
	b := New(store, book.NewMatcher(store), wallet.New(), testConfig(1), zap.NewNop())
	if _, err := b.Run("XRP/USDT"); err == nil {
		t.Fatal("expected error for product without tuning")
	}
}
