package wallet

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quantfold/exsim/pkg/book"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seeded(t *testing.T) *Wallet {
	t.Helper()
	w := New()
	for currency, amount := range map[string]string{
		"BTC": "10", "USDT": "100000", "ETH": "50",
	} {
		if err := w.Deposit(currency, dec(amount)); err != nil {
			t.Fatal(err)
		}
	}
	return w
}

func TestDeposit(t *testing.T) {
	w := New()
	if err := w.Deposit("BTC", dec("2.5")); err != nil {
		t.Fatal(err)
	}
	if err := w.Deposit("BTC", dec("0.5")); err != nil {
		t.Fatal(err)
	}
	if got := w.Balance("BTC"); !got.Equal(dec("3")) {
		t.Errorf("balance = %s, want 3", got)
	}
	if err := w.Deposit("BTC", dec("-1")); err == nil {
		t.Error("negative deposit accepted")
	}
}

func TestCanFulfill(t *testing.T) {
	w := seeded(t)
	ts := "2020/06/01 10:00:00.000000"

	tests := []struct {
		name  string
		order *book.Order
		want  bool
	}{
		{"ask within base balance",
			book.NewOrder(dec("9000"), dec("5"), ts, "BTC/USDT", book.Ask), true},
		{"ask exceeding base balance",
			book.NewOrder(dec("9000"), dec("11"), ts, "BTC/USDT", book.Ask), false},
		{"bid within quote balance",
			book.NewOrder(dec("9000"), dec("10"), ts, "BTC/USDT", book.Bid), true},
		{"bid exceeding quote balance",
			book.NewOrder(dec("9000"), dec("12"), ts, "BTC/USDT", book.Bid), false},
		{"unknown currency",
			book.NewOrder(dec("1"), dec("1"), ts, "DOGE/BTC", book.Ask), false},
		{"malformed product",
			book.NewOrder(dec("1"), dec("1"), ts, "BTCUSDT", book.Bid), false},
		{"sale kind is not an order",
			book.NewOrder(dec("1"), dec("1"), ts, "BTC/USDT", book.AskSale), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.CanFulfill(tt.order); got != tt.want {
				t.Errorf("CanFulfill = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSettleBidSale(t *testing.T) {
	w := seeded(t)
	ts := "2020/06/01 10:00:00.000000"
	sale := book.NewOrder(dec("9000"), dec("2"), ts, "BTC/USDT", book.BidSale)

	if err := w.Settle(sale); err != nil {
		t.Fatal(err)
	}
	if got := w.Balance("BTC"); !got.Equal(dec("12")) {
		t.Errorf("BTC = %s, want 12", got)
	}
	if got := w.Balance("USDT"); !got.Equal(dec("82000")) {
		t.Errorf("USDT = %s, want 82000", got)
	}
}

func TestSettleAskSale(t *testing.T) {
	w := seeded(t)
	ts := "2020/06/01 10:00:00.000000"
	sale := book.NewOrder(dec("9000"), dec("4"), ts, "BTC/USDT", book.AskSale)

	if err := w.Settle(sale); err != nil {
		t.Fatal(err)
	}
	if got := w.Balance("BTC"); !got.Equal(dec("6")) {
		t.Errorf("BTC = %s, want 6", got)
	}
	if got := w.Balance("USDT"); !got.Equal(dec("136000")) {
		t.Errorf("USDT = %s, want 136000", got)
	}
}

func TestSettleRefusals(t *testing.T) {
	w := seeded(t)
	ts := "2020/06/01 10:00:00.000000"

	// Standing orders are not settleable.
	if err := w.Settle(book.NewOrder(dec("1"), dec("1"), ts, "BTC/USDT", book.Bid)); err == nil {
		t.Error("settled a standing order")
	}

	// Overdraft refused, balances untouched.
	big := book.NewOrder(dec("9000"), dec("100"), ts, "BTC/USDT", book.AskSale)
	if err := w.Settle(big); err == nil {
		t.Error("settled an overdraft")
	}
	if got := w.Balance("BTC"); !got.Equal(dec("10")) {
		t.Errorf("BTC changed on refused settlement: %s", got)
	}
}

func TestString(t *testing.T) {
	w := seeded(t)
	out := w.String()
	for _, currency := range []string{"BTC : 10", "ETH : 50", "USDT : 100000"} {
		if !strings.Contains(out, currency) {
			t.Errorf("String() missing %q:\n%s", currency, out)
		}
	}
	// Sorted output: BTC before ETH before USDT.
	if strings.Index(out, "BTC") > strings.Index(out, "ETH") {
		t.Errorf("String() not sorted:\n%s", out)
	}
}
