// Command exsim is the interactive replay console: it loads the historical
// quote feed and lets the user trade against it one timeframe at a time.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfold/exsim/params"
	"github.com/quantfold/exsim/pkg/book"
	"github.com/quantfold/exsim/pkg/bot"
	"github.com/quantfold/exsim/pkg/csvfeed"
	"github.com/quantfold/exsim/pkg/session"
	"github.com/quantfold/exsim/pkg/util"
	"github.com/quantfold/exsim/pkg/wallet"
)

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := util.NewConsoleLogger(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	sess, err := buildSession(cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	run(sess, cfg, logger, bufio.NewScanner(os.Stdin))
}

func buildSession(cfg params.Config, logger *zap.Logger) (*session.Session, error) {
	buckets, err := csvfeed.Load(cfg.Feed.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	store := book.NewStoreFromBuckets(buckets)

	w := wallet.New()
	for currency, raw := range cfg.Seed {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("wallet seed %s=%s: %w", currency, raw, err)
		}
		if err := w.Deposit(currency, amount); err != nil {
			return nil, fmt.Errorf("wallet seed: %w", err)
		}
	}

	return session.New(store, w, logger)
}

func run(sess *session.Session, cfg params.Config, logger *zap.Logger, in *bufio.Scanner) {
	for {
		printMenu(sess.CurrentTime())
		choice, ok := readInt(in)
		if !ok {
			return
		}

		switch choice {
		case 1:
			startBot(sess, cfg, logger, in)
		case 2:
			printHelp()
		case 3:
			printStats(sess)
		case 4:
			enterOrder(sess, in, book.Ask)
		case 5:
			enterOrder(sess, in, book.Bid)
		case 6:
			fmt.Println(sess.Wallet())
		case 7:
			advance(sess)
		default:
			fmt.Println("Type in 1-7")
		}
	}
}

func printMenu(currentTime string) {
	fmt.Println("1: Start bot")
	fmt.Println("2: Print help")
	fmt.Println("3: Print exchange stats")
	fmt.Println("4: Make an ask")
	fmt.Println("5: Make a bid")
	fmt.Println("6: Print wallet")
	fmt.Println("7: Continue")
	fmt.Println("==============")
	fmt.Println("Current time is:", currentTime)
}

func printHelp() {
	fmt.Println("Help - your aim is to make money. Analyse the market and make bids and offers.")
}

func printStats(sess *session.Session) {
	for _, st := range sess.MarketStats() {
		fmt.Println("Product:", st.Product)
		fmt.Println("Asks seen:", st.AskCount)
		if st.HasAsks {
			fmt.Println("Max ask:", st.MaxAsk)
			fmt.Println("Min ask:", st.MinAsk)
		}
	}
}

func enterOrder(sess *session.Session, in *bufio.Scanner, kind book.Kind) {
	fmt.Printf("Make a %s - enter: product,price,amount, eg BTC/USDT,5000,0.5\n", kind)
	if !in.Scan() {
		return
	}
	input := strings.TrimSpace(in.Text())

	var err error
	if kind == book.Ask {
		_, err = sess.PlaceAsk(input)
	} else {
		_, err = sess.PlaceBid(input)
	}
	if err != nil {
		fmt.Println("Order rejected:", err)
		return
	}
	fmt.Println("Wallet looks good.")
}

func advance(sess *session.Session) {
	fmt.Println("Going to next time frame.")
	res, err := sess.Step()
	if err != nil {
		fmt.Println("Step failed:", err)
		return
	}
	fmt.Println("Sales:", len(res.Sales))
	for _, sale := range res.Sales {
		fmt.Printf("Sale price: %s amount %s\n", sale.Price, sale.Amount)
	}
	if res.Wrapped {
		fmt.Println("End of dataset reached, wrapping to the start.")
	}
}

func startBot(sess *session.Session, cfg params.Config, logger *zap.Logger, in *bufio.Scanner) {
	fmt.Println("1: Automate BTC/USDT trades")
	fmt.Println("2: Automate ETH/BTC trades")
	fmt.Println("3: Automate DOGE/BTC trades")
	fmt.Println("Select product to automate")

	choice, ok := readInt(in)
	if !ok {
		return
	}
	var product string
	switch choice {
	case 1:
		product = "BTC/USDT"
	case 2:
		product = "ETH/BTC"
	case 3:
		product = "DOGE/BTC"
	default:
		fmt.Println("Type in 1-3")
		return
	}

	fmt.Println("The trading bot is starting...")
	b := bot.New(sess.Store(), sess.Matcher(), sess.Wallet(), cfg.Bot, logger)
	report, err := b.Run(product)
	if err != nil {
		fmt.Println("Bot failed:", err)
		return
	}
	fmt.Printf("Bot finished: %d snapshots, %d orders placed, %d settled, %d withdrawn\n",
		report.Snapshots, report.Placed, report.Settled, report.Withdrawn)
	fmt.Println(sess.Wallet())
}

func readInt(in *bufio.Scanner) (int, bool) {
	if !in.Scan() {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(in.Text()))
	if err != nil {
		return -1, true
	}
	return n, true
}
