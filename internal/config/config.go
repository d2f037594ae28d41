// Package config loads the pipeline's runtime configuration the way the
// teacher SDK's main.go does: a local `.env` file via
// github.com/joho/godotenv, overlaid with process environment variables,
// collected into one struct with documented defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/khanbekov/market-pulse/internal/convert"
)

// Config collects every tunable named in spec §6.6.
type Config struct {
	BinanceURL      string
	BinanceSymbols  []string // binance.symbols / BINANCE_SYMBOLS

	AnalyticsSymbols          []string      // analytics.symbols
	AnalyticsSnapshotInterval time.Duration // analytics.snapshot.interval

	BroadcastSymbols  []string      // broadcast.symbols
	BroadcastInterval time.Duration // broadcast.interval

	MonteCarloSimulations  int // monte.carlo.simulations
	MonteCarloHorizonDays  int // monte.carlo.horizon.days
	ArimaHorizonPeriods    int // arima.horizon.periods

	RedisAddr string // empty means use the in-memory snapshot store
	HTTPAddr  string // broadcaster /ws/market/{symbol} listen address
	HealthAddr string // fasthttp /healthz listen address
}

// defaults mirror the teacher ingest Feed's own defaults: short intervals,
// conservative timeouts.
const (
	defaultBinanceURL         = "wss://stream.binance.com:9443/stream"
	defaultAnalyticsInterval  = 5 * time.Second
	defaultBroadcastInterval  = 1 * time.Second
	defaultMonteCarloSims     = 10000
	defaultMonteCarloHorizon  = 7
	defaultArimaHorizon       = 7
	defaultHTTPAddr           = ":8080"
	defaultHealthAddr         = ":8081"
)

// Load reads `.env` (if present) then the process environment, returning a
// populated Config. An unset BINANCE_SYMBOLS falls back to a default list;
// a BINANCE_SYMBOLS that is set but names no symbol terminates the process
// via logger.Fatal.
func Load(logger zerolog.Logger) Config {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, relying on process environment")
	}

	symbols := getSymbols("BINANCE_SYMBOLS", []string{"btcusdt", "ethusdt"})
	if len(symbols) == 0 {
		logger.Fatal().Msg("BINANCE_SYMBOLS must name at least one symbol")
	}

	// analytics.symbols / broadcast.symbols track the same set as
	// binance.symbols, but canonicalized to the ingest decoder's cleaned
	// symbol (uppercase, quote-suffix stripped) since that is the key the
	// Window Store and the broadcaster's Registry index on.
	canonicalSymbols := make([]string, len(symbols))
	for i, s := range symbols {
		canonicalSymbols[i] = convert.CleanSymbol(s)
	}

	return Config{
		BinanceURL:     getString("BINANCE_URL", defaultBinanceURL),
		BinanceSymbols: symbols,

		AnalyticsSymbols:          canonicalSymbols,
		AnalyticsSnapshotInterval: getDuration("ANALYTICS_SNAPSHOT_INTERVAL", defaultAnalyticsInterval),

		BroadcastSymbols:  canonicalSymbols,
		BroadcastInterval: getDuration("BROADCAST_INTERVAL", defaultBroadcastInterval),

		MonteCarloSimulations: getInt("MONTE_CARLO_SIMULATIONS", defaultMonteCarloSims),
		MonteCarloHorizonDays: getInt("MONTE_CARLO_HORIZON_DAYS", defaultMonteCarloHorizon),
		ArimaHorizonPeriods:   getInt("ARIMA_HORIZON_PERIODS", defaultArimaHorizon),

		RedisAddr:  getString("REDIS_ADDR", ""),
		HTTPAddr:   getString("HTTP_ADDR", defaultHTTPAddr),
		HealthAddr: getString("HEALTH_ADDR", defaultHealthAddr),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getSymbols(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
