package abc

import (
	"math"

	"github.com/khanbekov/market-pulse/internal/model"
	"github.com/khanbekov/market-pulse/internal/roundto"
	"gonum.org/v2/gonum/stat"
)

const tradingDaysPerYear = 252

// bayesianMomentum computes the Stage 2 posterior over annualised drift and
// volatility, using an ARIMA-informed conjugate-normal prior over daily
// log-returns.
func bayesianMomentum(p []float64, arimaTrend, arimaConfidence float64, structuralBreak bool) model.MomentumMetrics {
	returns := logReturns(p)
	m := len(returns)

	priorMean := 10 * arimaTrend
	priorVariance := 0.01 * (2 - arimaConfidence)
	priorN := 1 + arimaConfidence

	if m == 0 {
		return model.MomentumMetrics{
			Drift:             0,
			Volatility:        0,
			Confidence:        0,
			PriorMean:         roundto.Eight(priorMean),
			PosteriorMean:     roundto.Eight(priorMean),
			PriorVariance:     roundto.Eight(priorVariance),
			PosteriorVariance: roundto.Eight(priorVariance),
		}
	}

	xbar, s2 := stat.MeanVariance(returns, nil)

	postN := priorN + float64(m)
	postMean := (priorN*priorMean + float64(m)*xbar) / postN
	postVar := (priorN*priorVariance + float64(m)*s2 +
		(priorN*float64(m)/postN)*(xbar-priorMean)*(xbar-priorMean)) / postN

	drift := postMean * tradingDaysPerYear
	volatility := 0.0
	if postVar > 0 {
		volatility = math.Sqrt(postVar * tradingDaysPerYear)
	}

	confidence := 1 - 1/math.Sqrt(float64(m+1))
	if structuralBreak {
		confidence *= 0.7
	}
	confidence = clamp01(confidence)

	return model.MomentumMetrics{
		Drift:             roundto.Eight(drift),
		Volatility:        roundto.Eight(volatility),
		Confidence:        roundto.Eight(confidence),
		PriorMean:         roundto.Eight(priorMean),
		PosteriorMean:     roundto.Eight(postMean),
		PriorVariance:     roundto.Eight(priorVariance),
		PosteriorVariance: roundto.Eight(postVar),
	}
}

// logReturns computes ln(p[i]/p[i-1]) for each consecutive pair of valid
// (strictly positive) prices.
func logReturns(p []float64) []float64 {
	returns := make([]float64, 0, len(p))
	for i := 1; i < len(p); i++ {
		if p[i-1] <= 0 || p[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(p[i]/p[i-1]))
	}
	return returns
}
