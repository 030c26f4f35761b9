// Command exsimd runs the replay unattended: it steps through the dataset on
// a ticker, journals every trade, and serves the REST/WebSocket surface.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfold/exsim/params"
	"github.com/quantfold/exsim/pkg/api"
	"github.com/quantfold/exsim/pkg/book"
	"github.com/quantfold/exsim/pkg/csvfeed"
	"github.com/quantfold/exsim/pkg/journal"
	"github.com/quantfold/exsim/pkg/session"
	"github.com/quantfold/exsim/pkg/util"
	"github.com/quantfold/exsim/pkg/wallet"
)

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	buckets, err := csvfeed.Load(cfg.Feed.Path, logger)
	if err != nil {
		logger.Fatal("feed load failed", zap.String("path", cfg.Feed.Path), zap.Error(err))
	}
	store := book.NewStoreFromBuckets(buckets)

	w := wallet.New()
	for currency, raw := range cfg.Seed {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			logger.Fatal("bad wallet seed", zap.String("currency", currency), zap.Error(err))
		}
		w.Deposit(currency, amount)
	}

	sess, err := session.New(store, w, logger)
	if err != nil {
		logger.Fatal("session init failed", zap.Error(err))
	}

	var j *journal.Journal
	if cfg.Journal.Path != "" {
		os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755)
		j, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Fatal("journal open failed", zap.String("path", cfg.Journal.Path), zap.Error(err))
		}
		defer j.Close()
		sess.SetJournal(j)
		logger.Info("trade journal open",
			zap.String("path", cfg.Journal.Path), zap.Uint64("trades", j.Len()))
	}

	server := api.NewServer(sess, j, logger)
	if cfg.API.Addr != "" {
		go func() {
			if err := server.Start(cfg.API.Addr); err != nil {
				logger.Fatal("api server failed", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("replay starting",
		zap.String("feed", cfg.Feed.Path),
		zap.Strings("products", store.KnownProducts()),
		zap.Int("timeframes", len(store.Timestamps())),
		zap.Duration("step_interval", cfg.Session.StepInterval),
	)

	ticker := time.NewTicker(cfg.Session.StepInterval)
	defer ticker.Stop()

	steps := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down", zap.Int("steps", steps))
			return
		case <-ticker.C:
			res, err := sess.Step()
			if err != nil {
				logger.Error("step failed", zap.Error(err))
				continue
			}
			steps++
			server.BroadcastStep(res)
			if len(res.Sales) > 0 {
				logger.Info("timeframe crossed",
					zap.String("timestamp", res.From), zap.Int("trades", len(res.Sales)))
			}
			if res.Wrapped {
				logger.Info("dataset replay complete", zap.Int("steps", steps))
				ticker.Stop()
				// Keep serving the API until interrupted.
				<-ctx.Done()
				logger.Info("shutting down", zap.Int("steps", steps))
				return
			}
		}
	}
}
