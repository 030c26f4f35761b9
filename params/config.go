package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Feed locates the historical quote file.
type Feed struct {
	Path string
}

// Session controls the replay loop.
type Session struct {
	// StepInterval paces the daemon's automatic timeframe advance. The
	// interactive console ignores it (the user drives the clock).
	StepInterval time.Duration
}

// BotProduct carries the per-product strategy tuning: how much to trade per
// signal and the EMA delta band outside which the bot acts.
type BotProduct struct {
	DealSize float64
	BidDelta float64
	AskDelta float64
}

// Bot configures the autonomous strategy driver.
type Bot struct {
	// SnapshotInterval is the number of distinct timestamps between EMA
	// snapshots.
	SnapshotInterval int
	// MinFillFraction is the fraction of a placed amount that a fill must
	// reach for the bot to keep the order.
	MinFillFraction float64
	Products        map[string]BotProduct
}

// Journal configures the pebble trade journal. An empty path disables it.
type Journal struct {
	Path string
}

// API configures the HTTP/WebSocket surface. An empty address disables it.
type API struct {
	Addr string
}

type Config struct {
	Feed    Feed
	Session Session
	Seed    map[string]string // wallet seed: currency -> decimal amount
	Bot     Bot
	Journal Journal
	API     API
	LogFile string
}

// Default returns the reference-dataset configuration: the three products of
// the historical feed with the thresholds the strategy was tuned against.
func Default() Config {
	return Config{
		Feed:    Feed{Path: "20200601.csv"},
		Session: Session{StepInterval: 500 * time.Millisecond},
		Seed: map[string]string{
			"BTC":  "10",
			"USDT": "100000",
			"ETH":  "50",
			"DOGE": "50000",
		},
		Bot: Bot{
			SnapshotInterval: 10,
			MinFillFraction:  1.0 / 3.0,
			Products: map[string]BotProduct{
				"BTC/USDT": {DealSize: 1, BidDelta: 0.2, AskDelta: -0.2},
				"ETH/BTC":  {DealSize: 10, BidDelta: 8.44151e-06, AskDelta: -5.0012e-06},
				"DOGE/BTC": {DealSize: 100, BidDelta: 0.001, AskDelta: -0.001},
			},
		},
		Journal: Journal{Path: "data/trades.db"},
		API:     API{Addr: ":8080"},
		LogFile: "",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if path := os.Getenv("FEED_PATH"); path != "" {
		cfg.Feed.Path = path
	}
	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.API.Addr = addr
	}
	if path := os.Getenv("JOURNAL_PATH"); path != "" {
		cfg.Journal.Path = path
	}
	if path := os.Getenv("LOG_FILE"); path != "" {
		cfg.LogFile = path
	}
	if ms := os.Getenv("STEP_INTERVAL_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			cfg.Session.StepInterval = time.Duration(v) * time.Millisecond
		}
	}
	if n := os.Getenv("BOT_SNAPSHOT_INTERVAL"); n != "" {
		if v, err := strconv.Atoi(n); err == nil && v > 0 {
			cfg.Bot.SnapshotInterval = v
		}
	}
	if f := os.Getenv("BOT_MIN_FILL_FRACTION"); f != "" {
		if v, err := strconv.ParseFloat(f, 64); err == nil && v > 0 && v <= 1 {
			cfg.Bot.MinFillFraction = v
		}
	}

	// WALLET_SEED overrides the whole seed map.
	// Example: "BTC=10,USDT=100000,ETH=50"
	if seed := os.Getenv("WALLET_SEED"); seed != "" {
		parsed := make(map[string]string)
		for _, pair := range strings.Split(seed, ",") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) == 2 && kv[0] != "" && kv[1] != "" {
				parsed[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
			}
		}
		if len(parsed) > 0 {
			cfg.Seed = parsed
		}
	}

	return cfg
}
