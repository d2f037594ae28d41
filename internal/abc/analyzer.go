// Package abc implements the ABC analytical core: a pure three-stage
// pipeline (ARIMA-style trend + CUSUM break detection, Bayesian
// drift/volatility posterior, Monte Carlo GBM forecast) with a feedback
// coupling between stages, as specified in spec.md §4.D. The analyzer holds
// no I/O and no logger; an analysis failure never propagates as a Go error,
// it degrades to the documented default result.
package abc

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/khanbekov/market-pulse/internal/model"
	"github.com/khanbekov/market-pulse/internal/roundto"
)

// MinWindow is the minimum number of prices required to run the pipeline;
// below it, Analyze returns the documented default result.
const MinWindow = 30

const (
	highVolatilityThreshold = 0.50
	volatileRegimeThreshold = 0.30
)

// Analyzer runs the ABC pipeline. It is safe for concurrent use across
// different symbols; per spec §5 the scheduler must not invoke Analyze
// concurrently for the *same* symbol, but Analyzer itself does not enforce
// that — the caller's per-symbol single-flight does (see
// internal/analytics).
type Analyzer struct {
	mu     sync.Mutex
	source *rand.Rand // guarded by mu; used only to derive per-call seeds

	simulations int // monte.carlo.simulations override; defaults to Simulations
	horizonDays int // monte.carlo.horizon.days override; defaults to HorizonDays
}

// New creates an Analyzer whose Monte Carlo stage is seeded from seed and
// runs the default Simulations/HorizonDays. Tests should pick a fixed seed
// for reproducible runs (spec §8 "Laws").
func New(seed int64) *Analyzer {
	return &Analyzer{source: rand.New(rand.NewSource(seed)), simulations: Simulations, horizonDays: HorizonDays}
}

// NewRandomlySeeded creates an Analyzer seeded from the current time, for
// production use where run-to-run determinism is not required.
func NewRandomlySeeded() *Analyzer {
	return New(time.Now().UnixNano())
}

// WithMonteCarloParams overrides the number of simulated paths and the
// per-path horizon (spec §6.6 monte.carlo.simulations / monte.carlo.horizon.days).
// Non-positive values leave the corresponding default in place.
func (a *Analyzer) WithMonteCarloParams(simulations, horizonDays int) *Analyzer {
	if simulations > 0 {
		a.simulations = simulations
	}
	if horizonDays > 0 {
		a.horizonDays = horizonDays
	}
	return a
}

// Simulations reports the number of Monte Carlo paths this Analyzer runs
// per call, for callers that need to report it alongside the forecast
// (e.g. the snapshot's monteCarloResults.simulations wire field).
func (a *Analyzer) Simulations() int {
	return a.simulations
}

// Analyze runs the full ABC pipeline over prices (oldest first) and
// currentPrice. If len(prices) < MinWindow it returns the default result
// with MarketRegime UNKNOWN, per spec §4.D.
func (a *Analyzer) Analyze(prices []float64, currentPrice float64) model.ABCResult {
	if len(prices) < MinWindow {
		return defaultResult()
	}

	arimaSignal := arima(prices)
	momentum := bayesianMomentum(prices, arimaSignal.Trend, arimaSignal.Confidence, arimaSignal.StructuralBreakDetected)
	prediction := monteCarlo(a.rngForCall(), currentPrice, momentum.Drift, momentum.Volatility, a.simulations, a.horizonDays)

	integrationConfidence := math.Sqrt(arimaSignal.Confidence * momentum.Confidence)
	if arimaSignal.StructuralBreakDetected {
		integrationConfidence *= 0.7
	}

	needsRecalibration := arimaSignal.StructuralBreakDetected || momentum.Volatility > highVolatilityThreshold

	regime := selectRegime(arimaSignal, momentum, prediction)

	return model.ABCResult{
		ArimaSignal:              arimaSignal,
		MomentumMetrics:          momentum,
		MarketPrediction:         prediction,
		ABCIntegrationConfidence: roundto.Eight(clamp01(integrationConfidence)),
		NeedsRecalibration:       needsRecalibration,
		MarketRegime:             regime,
	}
}

// rngForCall derives a fresh, independently-seeded *rand.Rand for one
// Monte Carlo run. The shared source is only touched to draw the seed,
// under a brief lock, so concurrent Analyze calls for different symbols
// never contend on the simulation itself.
func (a *Analyzer) rngForCall() *rand.Rand {
	a.mu.Lock()
	seed := a.source.Int63()
	a.mu.Unlock()
	return rand.New(rand.NewSource(seed))
}

func selectRegime(arimaSignal model.ArimaSignal, momentum model.MomentumMetrics, prediction model.MarketPrediction) model.MarketRegime {
	if arimaSignal.StructuralBreakDetected {
		return model.RegimeChange
	}
	if momentum.Volatility > highVolatilityThreshold {
		return model.RegimeHighVolatility
	}

	bullish := 0
	if arimaSignal.TrendPercentage > 2 {
		bullish++
	}
	if momentum.Drift > 0.05 {
		bullish++
	}
	if prediction.ProbabilityUp > 0.6 {
		bullish++
	}
	if bullish >= 2 {
		if momentum.Volatility > volatileRegimeThreshold {
			return model.RegimeBullishVolatile
		}
		return model.RegimeBullishStable
	}

	bearish := 0
	if arimaSignal.TrendPercentage < -2 {
		bearish++
	}
	if momentum.Drift < -0.05 {
		bearish++
	}
	if prediction.ProbabilityUp < 0.4 {
		bearish++
	}
	if bearish >= 2 {
		if momentum.Volatility > volatileRegimeThreshold {
			return model.RegimeBearishVolatile
		}
		return model.RegimeBearishStable
	}

	if momentum.Volatility > volatileRegimeThreshold {
		return model.RegimeNeutralVolatile
	}
	return model.RegimeNeutralStable
}

func defaultResult() model.ABCResult {
	targets := make([]model.PriceTarget, 0, len(percentilePoints))
	for _, pct := range percentilePoints {
		targets = append(targets, model.PriceTarget{Percentile: pct})
	}

	return model.ABCResult{
		ArimaSignal: model.ArimaSignal{
			Description: "Price stable",
		},
		MomentumMetrics: model.MomentumMetrics{},
		MarketPrediction: model.MarketPrediction{
			ProbabilityNeutral:  1,
			MostLikelyScenario:  model.ScenarioSideways,
			PriceTargets:        targets,
		},
		ABCIntegrationConfidence: 0,
		NeedsRecalibration:       false,
		MarketRegime:             model.RegimeUnknown,
	}
}
