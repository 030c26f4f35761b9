// Package bot implements the autonomous EMA-crossover strategy. It replays
// the historical bid tape for a single product, snapshots an exponential
// moving average every few distinct timestamps, and trades against the book
// whenever the average changes direction past a tuned threshold.
package bot

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfold/exsim/params"
	"github.com/quantfold/exsim/pkg/book"
	"github.com/quantfold/exsim/pkg/wallet"
)

// Report summarises one Run for the caller.
type Report struct {
	Product   string
	Snapshots int
	Placed    int
	Settled   int
	Withdrawn int
}

// Bot drives the strategy over a store and settles its fills against a
// wallet. One Bot instance holds the state of a single run; create a fresh
// one per product per run.
type Bot struct {
	store   *book.Store
	matcher *book.Matcher
	wallet  *wallet.Wallet
	cfg     params.Bot
	logger  *zap.Logger

	// run state, reset by Run
	averages  []float64 // EMA chain; index 0 is the seeding simple average
	seedAcc   float64
	seedCount int
	cursor    string // timestamp the walk is currently inside
	tsSeen    int    // distinct timestamps since the last snapshot
	snapshots int
}

func New(store *book.Store, matcher *book.Matcher, w *wallet.Wallet, cfg params.Bot, logger *zap.Logger) *Bot {
	return &Bot{
		store:   store,
		matcher: matcher,
		wallet:  w,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run walks every historical bid for product in bucket order and trades on
// EMA crossovers. It returns an error only when the product has no strategy
// tuning; a run over an empty tape simply places nothing.
func (b *Bot) Run(product string) (Report, error) {
	tuning, ok := b.cfg.Products[product]
	if !ok {
		return Report{}, fmt.Errorf("bot: no tuning for product %s", product)
	}

	b.averages = nil
	b.seedAcc = 0
	b.seedCount = 0
	b.cursor = ""
	b.tsSeen = 0
	b.snapshots = 0

	report := Report{Product: product}
	b.logger.Info("bot run starting",
		zap.String("product", product),
		zap.Int("snapshot_interval", b.cfg.SnapshotInterval),
	)

	bids := b.store.OrdersByKindAndProduct(book.Bid, product)
	for _, bid := range bids {
		b.seedCount++
		isNewTimestamp := bid.Timestamp != b.cursor
		isSeeding := len(b.averages) == 0
		isSnapshotDue := b.tsSeen == b.cfg.SnapshotInterval

		if isSeeding {
			b.seedAcc += bid.Price.InexactFloat64()
		}
		if isNewTimestamp {
			b.cursor = bid.Timestamp
			if !isSnapshotDue {
				b.tsSeen++
			}
		}

		if isNewTimestamp && isSnapshotDue {
			b.tsSeen = 0
			b.snapshots++
			report.Snapshots++
			if isSeeding {
				b.seedAverage()
			} else {
				b.snapshot(bid, tuning, &report)
			}
		}
	}

	b.logger.Info("bot run finished",
		zap.String("product", product),
		zap.Int("snapshots", report.Snapshots),
		zap.Int("placed", report.Placed),
		zap.Int("settled", report.Settled),
		zap.Int("withdrawn", report.Withdrawn),
	)
	return report, nil
}

// seedAverage records the simple average of every bid price seen so far. The
// EMA recursion needs a starting value and the plain mean is close enough.
func (b *Bot) seedAverage() {
	avg := b.seedAcc / float64(b.seedCount)
	b.averages = append(b.averages, avg)
	b.logger.Info("bot seeded moving average", zap.Float64("average", avg))
}

// snapshot computes the next EMA term and trades when the delta against the
// previous term leaves the product's tuning band.
func (b *Bot) snapshot(ref *book.Order, tuning params.BotProduct, report *Report) {
	oldEMA := b.averages[len(b.averages)-1]
	weight := 2.0 / (float64(b.snapshots) + 1.0)
	head := ref.Price.InexactFloat64() * weight
	tail := oldEMA * (1.0 - weight)
	// A zero term would poison the delta; clamp to 1 as the original
	// tuning assumed.
	if head == 0 {
		head = 1
	}
	if tail == 0 {
		tail = 1
	}
	newEMA := head + tail
	delta := oldEMA - newEMA

	b.logger.Info("bot snapshot",
		zap.String("timestamp", b.cursor),
		zap.Float64("old_ema", oldEMA),
		zap.Float64("new_ema", newEMA),
		zap.Float64("delta", delta),
	)

	switch {
	case delta > tuning.BidDelta:
		b.placeOrder(book.Bid, ref, tuning, report)
	case delta < tuning.AskDelta:
		b.placeOrder(book.Ask, ref, tuning, report)
	default:
		b.logger.Debug("bot sleeping", zap.Float64("delta", delta))
	}

	b.averages = append(b.averages, newEMA)
}

// placeOrder inserts a bot order at the walk's current timestamp, runs the
// matcher, and keeps only fills that reach the minimum fill fraction.
func (b *Bot) placeOrder(kind book.Kind, ref *book.Order, tuning params.BotProduct, report *Report) {
	amount := decimal.NewFromFloat(tuning.DealSize)
	var price decimal.Decimal
	// Overshoot the reference price to maximise the odds of crossing.
	switch kind {
	case book.Bid:
		price = ref.Price.Mul(decimal.NewFromFloat(1.1))
	case book.Ask:
		price = ref.Price.Mul(decimal.NewFromFloat(0.9))
	}

	placed := book.NewOrder(price, amount, b.cursor, ref.Product, kind)
	placed.Owner = book.BotOwner
	b.store.Insert(placed)
	report.Placed++

	b.logger.Info("bot placing order",
		zap.String("kind", kind.String()),
		zap.String("product", ref.Product),
		zap.String("price", price.String()),
		zap.String("amount", amount.String()),
		zap.String("timestamp", b.cursor),
	)

	minFill := amount.Mul(decimal.NewFromFloat(b.cfg.MinFillFraction))
	sales := b.matcher.Match(ref.Product, b.cursor)
	for _, sale := range sales {
		b.logger.Info("bot offer accepted",
			zap.String("kind", sale.Kind.String()),
			zap.String("price", sale.Price.String()),
			zap.String("amount", sale.Amount.String()),
			zap.String("annotation", sale.Annotation),
		)
		if sale.Amount.GreaterThan(minFill) {
			if !b.wallet.CanFulfill(placed) {
				b.logger.Warn("bot wallet cannot fulfill placed order",
					zap.String("product", ref.Product),
				)
				continue
			}
			if err := b.wallet.Settle(sale); err != nil {
				b.logger.Warn("bot trade refused by wallet", zap.Error(err))
				continue
			}
			report.Settled++
		} else {
			// A sliver fill is not worth keeping; withdraw the
			// resting order.
			b.store.Remove(placed)
			report.Withdrawn++
		}
	}

	b.logger.Info("bot wallet after trading", zap.String("wallet", b.wallet.String()))
}
