package abc

import (
	"math"
	"math/rand"
	"sort"

	"github.com/khanbekov/market-pulse/internal/model"
	"github.com/khanbekov/market-pulse/internal/roundto"
)

const (
	// Simulations is the default N: the number of simulated GBM paths per
	// forecast, used when an Analyzer is not configured with an override.
	Simulations = 10000
	// HorizonDays is the default H: the number of daily steps simulated per
	// path, used when an Analyzer is not configured with an override.
	HorizonDays = 7
	// tradingDt is the daily time step, 1/252.
	tradingDt = 1.0 / tradingDaysPerYear
)

var percentilePoints = [...]int{5, 25, 50, 75, 95}

// monteCarlo simulates `simulations` geometric-Brownian-motion paths of
// `horizonDays` steps from currentPrice, parameterised by the Bayesian
// posterior drift/volatility, and summarises the terminal-price
// distribution into a MarketPrediction. rng is injected so callers (and
// tests) can seed it for reproducibility; Analyzer passes a fresh
// *rand.Rand per call, seeded from its own source (see rngForCall).
func monteCarlo(rng *rand.Rand, currentPrice, drift, volatility float64, simulations, horizonDays int) model.MarketPrediction {
	if currentPrice <= 0 {
		return model.MarketPrediction{}
	}

	terminals := make([]float64, simulations)
	driftTerm := (drift - 0.5*volatility*volatility) * tradingDt
	volTerm := volatility * math.Sqrt(tradingDt)

	for path := 0; path < simulations; path++ {
		s := currentPrice
		for step := 0; step < horizonDays; step++ {
			z := rng.NormFloat64()
			s *= math.Exp(driftTerm + volTerm*z)
		}
		terminals[path] = s
	}

	sorted := make([]float64, simulations)
	copy(sorted, terminals)
	sort.Float64s(sorted)

	var up, down int
	var sum float64
	for _, s := range terminals {
		sum += s
		if s > currentPrice {
			up++
		} else {
			down++
		}
	}

	probUp := float64(up) / float64(simulations)
	probDown := float64(down) / float64(simulations)
	probNeutral := math.Max(0, 1-probUp-probDown)

	meanTerminal := sum / float64(simulations)
	expectedReturn := (meanTerminal - currentPrice) / currentPrice
	expectedChange := currentPrice * expectedReturn
	expectedChangePct := expectedReturn * 100

	idx95 := int(0.05 * float64(simulations))
	idx99 := int(0.01 * float64(simulations))
	var cvarSum float64
	for i := 0; i < idx95; i++ {
		cvarSum += currentPrice - sorted[i]
	}
	cvar := 0.0
	if idx95 > 0 {
		cvar = cvarSum / float64(idx95)
	}

	targets := make([]model.PriceTarget, 0, len(percentilePoints))
	for _, pct := range percentilePoints {
		idx := int(float64(pct) / 100 * float64(simulations))
		if idx >= simulations {
			idx = simulations - 1
		}
		price := sorted[idx]
		change := (price - currentPrice) / currentPrice * 100
		targets = append(targets, model.PriceTarget{
			Percentile:    pct,
			Price:         roundto.Eight(price),
			ChangePercent: roundto.Two(change),
		})
	}

	return model.MarketPrediction{
		ProbabilityUp:              roundto.Eight(probUp),
		ProbabilityDown:            roundto.Eight(probDown),
		ProbabilityNeutral:         roundto.Eight(probNeutral),
		ExpectedReturn:             roundto.Eight(expectedReturn),
		ExpectedPriceChange:        roundto.Two(expectedChange),
		ExpectedPriceChangePercent: roundto.Two(expectedChangePct),
		MostLikelyScenario:         mostLikelyScenario(probUp, probDown, probNeutral),
		PriceTargets:               targets,
		ValueAtRisk95:              roundto.Eight(currentPrice - sorted[idx95]),
		ValueAtRisk99:              roundto.Eight(currentPrice - sorted[idx99]),
		ConditionalValueAtRisk:     roundto.Eight(cvar),
	}
}

func mostLikelyScenario(up, down, neutral float64) model.MostLikelyScenario {
	switch {
	case up >= down && up >= neutral:
		return model.ScenarioUpward
	case down >= up && down >= neutral:
		return model.ScenarioDownward
	default:
		return model.ScenarioSideways
	}
}
