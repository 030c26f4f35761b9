package session

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfold/exsim/pkg/book"
	"github.com/quantfold/exsim/pkg/journal"
	"github.com/quantfold/exsim/pkg/wallet"
)

const (
	ts1 = "2020/06/01 10:00:00.000000"
	ts2 = "2020/06/01 10:00:05.000000"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestSession(t *testing.T) *Session {
	t.Helper()

	store := book.NewStore()
	// Dataset orders at two timestamps.
	store.Insert(book.NewOrder(dec("9000"), dec("2"), ts1, "BTC/USDT", book.Ask))
	store.Insert(book.NewOrder(dec("9100"), dec("2"), ts1, "BTC/USDT", book.Bid))
	store.Insert(book.NewOrder(dec("0.021"), dec("5"), ts2, "ETH/BTC", book.Ask))

	w := wallet.New()
	w.Deposit("BTC", dec("10"))
	w.Deposit("USDT", dec("100000"))

	s, err := New(store, w, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewStartsAtEarliest(t *testing.T) {
	s := newTestSession(t)
	if got := s.CurrentTime(); got != ts1 {
		t.Errorf("current = %s, want %s", got, ts1)
	}
}

func TestNewEmptyStore(t *testing.T) {
	if _, err := New(book.NewStore(), wallet.New(), zap.NewNop()); err == nil {
		t.Fatal("expected error for empty store")
	}
}

func TestStepMatchesAndAdvances(t *testing.T) {
	s := newTestSession(t)

	res, err := s.Step()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Sales) != 1 {
		t.Fatalf("step produced %d trades, want 1", len(res.Sales))
	}
	if res.From != ts1 || res.To != ts2 || res.Wrapped {
		t.Errorf("step = %+v, want from %s to %s without wrap", res, ts1, ts2)
	}
	if got := s.CurrentTime(); got != ts2 {
		t.Errorf("current = %s, want %s", got, ts2)
	}
}

func TestStepWrapsAtEndOfTimeline(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Step(); err != nil {
		t.Fatal(err)
	}

	res, err := s.Step()
	if err != nil {
		t.Fatal(err)
	}
	if !res.Wrapped || res.To != ts1 {
		t.Errorf("step = %+v, want wrap back to %s", res, ts1)
	}
}

func TestStepSettlesSimUserTrades(t *testing.T) {
	s := newTestSession(t)

	// The user undercuts the dataset ask; their ask fills first and the
	// wallet banks the proceeds.
	if _, err := s.PlaceAsk("BTC/USDT,8900,1"); err != nil {
		t.Fatal(err)
	}
	res, err := s.Step()
	if err != nil {
		t.Fatal(err)
	}

	var simSale *book.Order
	for _, sale := range res.Sales {
		if sale.Owner == book.SimOwner {
			simSale = sale
		}
	}
	if simSale == nil {
		t.Fatal("no trade attributed to the console user")
	}
	if simSale.Kind != book.AskSale {
		t.Errorf("kind = %s, want asksale", simSale.Kind)
	}

	// 10 BTC - 1 sold; 100000 USDT + 1*8900.
	if got := s.Wallet().Balance("BTC"); !got.Equal(dec("9")) {
		t.Errorf("BTC = %s, want 9", got)
	}
	if got := s.Wallet().Balance("USDT"); !got.Equal(dec("108900")) {
		t.Errorf("USDT = %s, want 108900", got)
	}
}

func TestStepJournalsAllTrades(t *testing.T) {
	s := newTestSession(t)

	j, err := journal.Open(filepath.Join(t.TempDir(), "trades.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { j.Close() })
	s.SetJournal(j)

	res, err := s.Step()
	if err != nil {
		t.Fatal(err)
	}
	if got := j.Len(); got != uint64(len(res.Sales)) {
		t.Errorf("journal holds %d trades, step produced %d", got, len(res.Sales))
	}
}

func TestOnTradesHook(t *testing.T) {
	s := newTestSession(t)

	var gotTS string
	var gotCount int
	s.OnTrades(func(timestamp string, sales []*book.Order) {
		gotTS = timestamp
		gotCount = len(sales)
	})

	if _, err := s.Step(); err != nil {
		t.Fatal(err)
	}
	if gotTS != ts1 || gotCount != 1 {
		t.Errorf("hook saw (%s, %d), want (%s, 1)", gotTS, gotCount, ts1)
	}
}

func TestPlaceBidRequiresFunds(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.PlaceBid("BTC/USDT,9000,100"); err == nil {
		t.Error("bid beyond the wallet was accepted")
	}
	if _, err := s.PlaceBid("BTC/USDT,9000,1"); err != nil {
		t.Errorf("affordable bid rejected: %v", err)
	}
	if _, err := s.PlaceBid("garbage"); err == nil {
		t.Error("malformed entry accepted")
	}
}

func TestMarketStats(t *testing.T) {
	s := newTestSession(t)

	stats := s.MarketStats()
	byProduct := make(map[string]ProductStats)
	for _, st := range stats {
		byProduct[st.Product] = st
	}

	btc := byProduct["BTC/USDT"]
	if !btc.HasAsks || btc.AskCount != 1 {
		t.Errorf("BTC stats = %+v, want one ask", btc)
	}
	if !btc.MaxAsk.Equal(dec("9000")) || !btc.MinAsk.Equal(dec("9000")) {
		t.Errorf("BTC extrema = %s/%s, want 9000/9000", btc.MaxAsk, btc.MinAsk)
	}

	// ETH has no asks at ts1.
	if eth := byProduct["ETH/BTC"]; eth.HasAsks {
		t.Errorf("ETH stats = %+v, want empty ask book", eth)
	}
}
