package abc

import (
	"math"
	"math/rand"
	"testing"

	"github.com/khanbekov/market-pulse/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monotonePrices(factor float64, n int) []float64 {
	p := make([]float64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		p[i] = price
		price *= factor
	}
	return p
}

func TestAnalyzeMonotoneUpwardTrend(t *testing.T) {
	a := New(42)
	prices := monotonePrices(1.001, 200)

	result := a.Analyze(prices, prices[len(prices)-1])

	assert.Greater(t, result.ArimaSignal.TrendPercentage, 0.0)
	assert.False(t, result.ArimaSignal.StructuralBreakDetected)
	assert.Greater(t, result.MomentumMetrics.Drift, 0.0)
	assert.Greater(t, result.MarketPrediction.ProbabilityUp, 0.5)
	assert.Contains(t, []model.MarketRegime{model.RegimeBullishStable, model.RegimeBullishVolatile}, result.MarketRegime)
	assert.False(t, result.NeedsRecalibration)
}

func TestAnalyzeMonotoneDownwardTrend(t *testing.T) {
	a := New(42)
	prices := monotonePrices(0.999, 200)

	result := a.Analyze(prices, prices[len(prices)-1])

	assert.Less(t, result.ArimaSignal.TrendPercentage, 0.0)
	assert.Less(t, result.MomentumMetrics.Drift, 0.0)
	assert.Less(t, result.MarketPrediction.ProbabilityUp, 0.5)
	assert.Contains(t, []model.MarketRegime{model.RegimeBearishStable, model.RegimeBearishVolatile}, result.MarketRegime)
}

func TestAnalyzeStableThenStepTriggersStructuralBreak(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	prices := make([]float64, 0, 200)
	for i := 0; i < 140; i++ {
		prices = append(prices, 100+rng.NormFloat64()*0.1)
	}
	for i := 0; i < 60; i++ {
		prices = append(prices, 130+rng.NormFloat64()*0.1)
	}

	a := New(42)
	result := a.Analyze(prices, prices[len(prices)-1])

	assert.True(t, result.ArimaSignal.StructuralBreakDetected)
	assert.Equal(t, model.RegimeChange, result.MarketRegime)
	assert.True(t, result.NeedsRecalibration)
}

func TestAnalyzePureNoiseIsStable(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	prices := make([]float64, 200)
	for i := range prices {
		prices[i] = 100 + rng.NormFloat64()*0.01
	}

	a := New(42)
	result := a.Analyze(prices, prices[len(prices)-1])

	assert.Less(t, math.Abs(result.ArimaSignal.TrendPercentage), 1.0)
	assert.Equal(t, "Price stable", result.ArimaSignal.Description)
	assert.Contains(t, []model.MarketRegime{model.RegimeNeutralStable, model.RegimeNeutralVolatile}, result.MarketRegime)
}

func TestAnalyzeInsufficientDataReturnsDefault(t *testing.T) {
	a := New(42)
	prices := monotonePrices(1.01, 10)

	result := a.Analyze(prices, prices[len(prices)-1])

	assert.Equal(t, model.RegimeUnknown, result.MarketRegime)
	assert.Equal(t, model.ArimaSignal{Description: "Price stable"}, result.ArimaSignal)
	assert.Equal(t, model.MomentumMetrics{}, result.MomentumMetrics)
	assert.False(t, result.NeedsRecalibration)
	assert.Equal(t, 0.0, result.ABCIntegrationConfidence)
}

func TestAnalyzeStdevZeroProducesNoBreak(t *testing.T) {
	a := New(42)
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100
	}

	result := a.Analyze(prices, 100)

	assert.False(t, result.ArimaSignal.StructuralBreakDetected)
	assert.Equal(t, 0.0, result.ArimaSignal.CusumStatistic)
}

func TestAnalyzeVolatilityExactlyThresholdIsNotHighVolatility(t *testing.T) {
	// A momentum metrics value of exactly 0.50 must not classify as
	// HIGH_VOLATILITY: the invariant is a strict inequality.
	momentum := model.MomentumMetrics{Volatility: 0.50}
	arimaSignal := model.ArimaSignal{StructuralBreakDetected: false}
	prediction := model.MarketPrediction{ProbabilityUp: 0.5}

	regime := selectRegime(arimaSignal, momentum, prediction)
	assert.NotEqual(t, model.RegimeHighVolatility, regime)
}

func TestMarketPredictionInvariants(t *testing.T) {
	a := New(1)
	prices := monotonePrices(1.0005, 100)
	result := a.Analyze(prices, prices[len(prices)-1])

	pred := result.MarketPrediction
	sum := pred.ProbabilityUp + pred.ProbabilityDown
	assert.GreaterOrEqual(t, sum, 0.0)
	assert.LessOrEqual(t, sum, 1.0)
	assert.InDelta(t, math.Max(0, 1-sum), pred.ProbabilityNeutral, 1e-9)

	require.Len(t, pred.PriceTargets, 5)
	wantPercentiles := []int{5, 25, 50, 75, 95}
	for i, target := range pred.PriceTargets {
		assert.Equal(t, wantPercentiles[i], target.Percentile)
	}
}

func TestMomentumMetricsInvariants(t *testing.T) {
	a := New(1)
	prices := monotonePrices(0.998, 150)
	result := a.Analyze(prices, prices[len(prices)-1])

	assert.GreaterOrEqual(t, result.MomentumMetrics.Volatility, 0.0)
	assert.GreaterOrEqual(t, result.MomentumMetrics.Confidence, 0.0)
	assert.LessOrEqual(t, result.MomentumMetrics.Confidence, 1.0)
}

func TestNeedsRecalibrationMatchesFormula(t *testing.T) {
	a := New(5)
	prices := monotonePrices(1.002, 120)
	result := a.Analyze(prices, prices[len(prices)-1])

	want := result.ArimaSignal.StructuralBreakDetected || result.MomentumMetrics.Volatility > 0.50
	assert.Equal(t, want, result.NeedsRecalibration)
}

func TestMarketRegimeIsInClosedSet(t *testing.T) {
	closed := map[model.MarketRegime]bool{
		model.RegimeBullishStable: true, model.RegimeBullishVolatile: true,
		model.RegimeBearishStable: true, model.RegimeBearishVolatile: true,
		model.RegimeNeutralStable: true, model.RegimeNeutralVolatile: true,
		model.RegimeChange: true, model.RegimeHighVolatility: true,
		model.RegimeUnknown: true,
	}

	a := New(3)
	for _, n := range []int{10, 30, 50, 200} {
		prices := monotonePrices(1.0+float64(n%3)*0.001, n)
		result := a.Analyze(prices, prices[len(prices)-1])
		assert.True(t, closed[result.MarketRegime], "unexpected regime %q", result.MarketRegime)
	}
}

func TestExpectedReturnIsRawFractionDistinctFromPercent(t *testing.T) {
	a := New(9)
	prices := monotonePrices(1.002, 150)
	result := a.Analyze(prices, prices[len(prices)-1])

	pred := result.MarketPrediction
	assert.InDelta(t, pred.ExpectedReturn*100, pred.ExpectedPriceChangePercent, 1e-6)
	if pred.ExpectedReturn != 0 {
		assert.NotEqual(t, pred.ExpectedReturn, pred.ExpectedPriceChangePercent)
	}
}

func TestWithMonteCarloParamsOverridesDefaults(t *testing.T) {
	a := New(11).WithMonteCarloParams(500, 14)
	assert.Equal(t, 500, a.Simulations())

	prices := monotonePrices(1.001, 100)
	result := a.Analyze(prices, prices[len(prices)-1])
	require.Len(t, result.MarketPrediction.PriceTargets, 5)
}

func TestWithMonteCarloParamsIgnoresNonPositiveOverrides(t *testing.T) {
	a := New(11).WithMonteCarloParams(0, -1)
	assert.Equal(t, Simulations, a.Simulations())
}

func TestAnalyzeIsDeterministicWhenSeeded(t *testing.T) {
	prices := monotonePrices(1.001, 100)

	a1 := New(123)
	a2 := New(123)

	r1 := a1.Analyze(prices, prices[len(prices)-1])
	r2 := a2.Analyze(prices, prices[len(prices)-1])

	assert.Equal(t, r1, r2)
}
