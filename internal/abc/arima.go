package abc

import (
	"fmt"
	"math"

	"github.com/khanbekov/market-pulse/internal/model"
	"github.com/khanbekov/market-pulse/internal/roundto"
	"gonum.org/v2/gonum/stat"
)

// Holt's double exponential smoothing parameters, fixed per spec §4.D.
const (
	holtAlpha = 0.3
	holtBeta  = 0.1
)

// modelLabel is the wire-contract model name. The implemented algorithm is
// Holt's double exponential smoothing, not a fitted ARIMA(1,1,1); the label
// is preserved unchanged because external consumers key off it (spec §9
// Open Questions).
const modelLabel = "ARIMA(1,1,1)"

// arima computes the Stage 1 trend/structural-break signal from an ordered
// price vector of length >= MinWindow.
func arima(p []float64) model.ArimaSignal {
	n := len(p)

	trend := holtTrend(p)
	mean := stat.Mean(p, nil)

	var trendPct float64
	if mean != 0 {
		trendPct = 100 * trend / mean
	}

	cusum, threshold, structuralBreak := cusumBreak(p, mean)

	confidence := 1 - 1/math.Sqrt(float64(n+1))
	if structuralBreak {
		confidence *= 0.7
	}
	confidence = clamp01(confidence)

	return model.ArimaSignal{
		Trend:                   trend,
		TrendPercentage:         roundto.Two(trendPct),
		StructuralBreakDetected: structuralBreak,
		Confidence:              roundto.Eight(confidence),
		Description:             describeTrend(trendPct, structuralBreak),
		CusumStatistic:          roundto.Eight(cusum),
		Threshold:               roundto.Eight(threshold),
	}
}

// holtTrend runs Holt's double exponential smoothing over p and returns the
// final trend (level slope) component.
func holtTrend(p []float64) float64 {
	n := len(p)
	level := p[0]
	trend := (p[n-1] - p[0]) / float64(n)

	for i := 1; i < n; i++ {
		newLevel := holtAlpha*p[i] + (1-holtAlpha)*(level+trend)
		trend = holtBeta*(newLevel-level) + (1-holtBeta)*trend
		level = newLevel
	}
	return trend
}

// cusumBreak computes the CUSUM structural-break statistic over the final
// 30% of the price series.
func cusumBreak(p []float64, mean float64) (cusum, threshold float64, broke bool) {
	n := len(p)
	if n < 10 {
		return 0, 0, false
	}

	sigma := stat.StdDev(p, nil)
	if sigma == 0 {
		return 0, 0, false
	}

	start := int(0.7 * float64(n))
	var c float64
	maxAbs := 0.0
	for i := start; i < n; i++ {
		c += (p[i] - mean) / sigma
		if math.Abs(c) > maxAbs {
			maxAbs = math.Abs(c)
		}
	}

	threshold = 3 * sigma
	return maxAbs, threshold, maxAbs > threshold
}

func describeTrend(trendPct float64, structuralBreak bool) string {
	var desc string
	switch {
	case math.Abs(trendPct) < 1:
		desc = "Price stable"
	case trendPct > 0:
		desc = fmt.Sprintf("Price increasing %.2f%% in trend", trendPct)
	default:
		desc = fmt.Sprintf("Price decreasing %.2f%% in trend", -trendPct)
	}
	if structuralBreak {
		desc += " [STRUCTURAL BREAK DETECTED]"
	}
	return desc
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
