// Package roundto applies the wire-boundary rounding rules from the ABC
// analyzer's numeric semantics: half-up rounding at fixed scales. Internal
// computation stays on float64; only values about to cross into the wire
// schema are rounded here.
package roundto

import "github.com/shopspring/decimal"

func init() {
	decimal.DivisionPrecision = 16
}

// Eight rounds to 8 fractional digits, half-up. This is the default scale
// for externally-facing fractional values per spec §4.D.
func Eight(v float64) float64 {
	return round(v, 8)
}

// Two rounds to 2 fractional digits, half-up. Used for trendPercentage,
// expectedPriceChange, expectedPriceChangePercent, and percentile
// changePercent.
func Two(v float64) float64 {
	return round(v, 2)
}

func round(v float64, places int32) float64 {
	d := decimal.NewFromFloat(v)
	f, _ := d.Round(places).Float64()
	return f
}
