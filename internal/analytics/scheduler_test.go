package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanbekov/market-pulse/internal/abc"
	"github.com/khanbekov/market-pulse/internal/model"
	"github.com/khanbekov/market-pulse/internal/snapshot"
	"github.com/khanbekov/market-pulse/internal/window"
)

func seedWindow(w *window.Store, symbol string, prices []float64) {
	for i, p := range prices {
		w.Append(symbol, model.Tick{Symbol: symbol, Price: p, Volume: 1, Time: time.Unix(int64(i), 0)})
	}
}

func TestAnalyzeSymbolSavesSnapshot(t *testing.T) {
	w := window.New()
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)*0.5
	}
	seedWindow(w, "BTC", prices)

	store := snapshot.NewMemStore()
	analyzer := abc.New(42)
	sched := NewScheduler(Config{Symbols: []string{"BTC"}, Interval: time.Second, ArimaHorizonPeriods: 7}, w, analyzer, store, zerolog.Nop())

	sched.analyzeSymbol(context.Background(), "BTC")

	snap, err := snapshot.FindLatestSnapshot(context.Background(), store, "BTC")
	require.NoError(t, err)
	assert.Equal(t, "BTC", snap.Symbol)
	assert.Equal(t, prices[len(prices)-1], snap.CurrentPrice)
	assert.Equal(t, 7, snap.ArimaForecast.Horizon)
	assert.Equal(t, "ARIMA(1,1,1)", snap.ArimaForecast.ModelOrder)
	assert.Equal(t, abc.Simulations, snap.MonteCarloResults.Simulations)
	assert.InDelta(t, snap.ABCAnalysis.MarketPrediction.ExpectedReturn, snap.MonteCarloResults.ExpectedReturn, 1e-12)
	assert.NotEqual(t, model.RegimeUnknown, snap.MarketState)
}

func TestAnalyzeSymbolReportsConfiguredSimulationCount(t *testing.T) {
	w := window.New()
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)*0.5
	}
	seedWindow(w, "XRP", prices)

	store := snapshot.NewMemStore()
	analyzer := abc.New(42).WithMonteCarloParams(250, 5)
	sched := NewScheduler(Config{Symbols: []string{"XRP"}, Interval: time.Second}, w, analyzer, store, zerolog.Nop())

	sched.analyzeSymbol(context.Background(), "XRP")

	snap, err := snapshot.FindLatestSnapshot(context.Background(), store, "XRP")
	require.NoError(t, err)
	assert.Equal(t, 250, snap.MonteCarloResults.Simulations)
}

func TestAnalyzeSymbolSkipsEmptyWindow(t *testing.T) {
	w := window.New()
	store := snapshot.NewMemStore()
	analyzer := abc.New(1)
	sched := NewScheduler(Config{Symbols: []string{"ETH"}, Interval: time.Second}, w, analyzer, store, zerolog.Nop())

	sched.analyzeSymbol(context.Background(), "ETH")

	_, err := snapshot.FindLatestSnapshot(context.Background(), store, "ETH")
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestAnalyzeSymbolSingleFlightSkipsOverlap(t *testing.T) {
	w := window.New()
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	seedWindow(w, "SOL", prices)

	store := snapshot.NewMemStore()
	analyzer := abc.New(7)
	sched := NewScheduler(Config{Symbols: []string{"SOL"}, Interval: time.Second}, w, analyzer, store, zerolog.Nop())

	lock := sched.lockFor("SOL")
	lock.Lock()
	defer lock.Unlock()

	sched.analyzeSymbol(context.Background(), "SOL")

	_, err := snapshot.FindLatestSnapshot(context.Background(), store, "SOL")
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestSampleSizeReflectsReturnCount(t *testing.T) {
	w := window.New()
	prices := make([]float64, 35)
	for i := range prices {
		prices[i] = 50 + math.Sin(float64(i))
	}
	seedWindow(w, "DOGE", prices)

	store := snapshot.NewMemStore()
	analyzer := abc.New(3)
	sched := NewScheduler(Config{Symbols: []string{"DOGE"}, Interval: time.Second}, w, analyzer, store, zerolog.Nop())

	sched.analyzeSymbol(context.Background(), "DOGE")

	snap, err := snapshot.FindLatestSnapshot(context.Background(), store, "DOGE")
	require.NoError(t, err)
	assert.Equal(t, len(prices)-1, snap.BayesianMetrics.SampleSize)
}
