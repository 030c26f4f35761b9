// Package session drives one replay of the historical order book: it owns
// the simulated clock, runs the matching engine at each step, settles the
// user's trades against the wallet and journals everything that executed.
package session

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfold/exsim/pkg/book"
	"github.com/quantfold/exsim/pkg/csvfeed"
	"github.com/quantfold/exsim/pkg/journal"
	"github.com/quantfold/exsim/pkg/wallet"
)

// ProductStats summarizes one product's ask book at the session time.
type ProductStats struct {
	Product  string
	AskCount int
	HasAsks  bool
	MaxAsk   decimal.Decimal
	MinAsk   decimal.Decimal
}

// StepResult reports one timeframe advance.
type StepResult struct {
	From    string        // timestamp that was matched
	To      string        // new session time
	Wrapped bool          // the timeline wrapped back to its start
	Sales   []*book.Order // all trades of the step, across products
}

// Session replays the order book one timeframe at a time.
type Session struct {
	store   *book.Store
	matcher *book.Matcher
	wallet  *wallet.Wallet
	logger  *zap.Logger

	mu      sync.Mutex
	current string

	journal  *journal.Journal                  // optional
	onTrades func(timestamp string, sales []*book.Order) // optional broadcast hook
}

// New positions a session at the store's earliest timestamp.
func New(store *book.Store, w *wallet.Wallet, logger *zap.Logger) (*Session, error) {
	earliest, err := store.EarliestTimestamp()
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Session{
		store:   store,
		matcher: book.NewMatcher(store),
		wallet:  w,
		logger:  logger,
		current: earliest,
	}, nil
}

// SetJournal attaches a trade journal. Every executed trade of a step is
// appended, regardless of owner.
func (s *Session) SetJournal(j *journal.Journal) { s.journal = j }

// OnTrades registers a hook invoked after each step that produced trades.
func (s *Session) OnTrades(fn func(timestamp string, sales []*book.Order)) {
	s.onTrades = fn
}

// CurrentTime returns the session's simulated time.
func (s *Session) CurrentTime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Store exposes the underlying order store for queries.
func (s *Session) Store() *book.Store { return s.store }

// Wallet exposes the session wallet.
func (s *Session) Wallet() *wallet.Wallet { return s.wallet }

// Matcher exposes the matching engine, sharing its recognized-participant
// set with direct callers such as the strategy driver.
func (s *Session) Matcher() *book.Matcher { return s.matcher }

// Step matches every known product at the current time, settles the trades
// attributed to the console user, journals all executed trades and advances
// the clock. Advancing past the last timestamp wraps to the earliest.
func (s *Session) Step() (StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := StepResult{From: s.current}
	for _, product := range s.store.KnownProducts() {
		sales := s.matcher.Match(product, s.current)
		if len(sales) == 0 {
			continue
		}
		s.logger.Info("timeframe matched",
			zap.String("product", product),
			zap.String("timestamp", s.current),
			zap.Int("sales", len(sales)))

		for _, sale := range sales {
			if sale.Owner == book.SimOwner {
				if err := s.wallet.Settle(sale); err != nil {
					s.logger.Warn("settlement refused",
						zap.String("trade", sale.String()),
						zap.Error(err))
				}
			}
			if s.journal != nil {
				if _, err := s.journal.Append(sale); err != nil {
					s.logger.Warn("journal append failed", zap.Error(err))
				}
			}
		}
		res.Sales = append(res.Sales, sales...)
	}

	next, err := s.store.NextTimestamp(s.current)
	if err != nil {
		return res, fmt.Errorf("session: advance from %s: %w", s.current, err)
	}
	res.Wrapped = next <= s.current
	res.To = next
	s.current = next

	if s.onTrades != nil && len(res.Sales) > 0 {
		s.onTrades(res.From, res.Sales)
	}
	return res, nil
}

// MarketStats reports the ask book per product at the current time. A
// product with no standing asks is reported with HasAsks false rather than
// surfacing the extrema error.
func (s *Session) MarketStats() []ProductStats {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	var out []ProductStats
	for _, product := range s.store.KnownProducts() {
		asks := s.store.OrdersFiltered(book.Ask, product, current)
		stats := ProductStats{Product: product, AskCount: len(asks)}
		if len(asks) > 0 {
			stats.HasAsks = true
			stats.MaxAsk, _ = book.HighPrice(asks)
			stats.MinAsk, _ = book.LowPrice(asks)
		}
		out = append(out, stats)
	}
	return out
}

// PlaceAsk parses "product,price,amount", gates it on the wallet and inserts
// it as the console user's ask at the current time.
func (s *Session) PlaceAsk(input string) (*book.Order, error) {
	return s.place(input, book.Ask)
}

// PlaceBid is PlaceAsk for the buy side.
func (s *Session) PlaceBid(input string) (*book.Order, error) {
	return s.place(input, book.Bid)
}

func (s *Session) place(input string, kind book.Kind) (*book.Order, error) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	o, err := csvfeed.ParseRow(input, current, kind)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	o.Owner = book.SimOwner

	if !s.wallet.CanFulfill(o) {
		return nil, fmt.Errorf("session: wallet has insufficient funds for %s", o)
	}
	s.store.Insert(o)
	s.logger.Info("order placed",
		zap.String("order", o.String()))
	return o, nil
}
