// Package analytics implements the heuristic scorers layered over the
// polled readings: battery depletion risk, load scheduling opportunity
// and weather correlation. All scores are clamped to [0,1]; the
// constants are hand-tuned and have no physical derivation.
package analytics

import (
	"math"

	"github.com/solwatch/solwatch/internal/types"
)

// MovingAverage returns the mean of the last window values, or of all
// values when fewer are available. Returns 0 for an empty slice.
func MovingAverage(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0
	}
	if window <= 0 || window > len(values) {
		window = len(values)
	}
	sum := 0.0
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	return sum / float64(window)
}

// LinearTrend returns the least-squares slope of values per sample
// step. Positive means rising. Returns 0 with fewer than two samples.
func LinearTrend(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// BatteryRisk scores the risk of the battery depleting before the next
// charging window. It blends the current state of charge, the SOC
// trend, and the net power deficit.
func BatteryRisk(readings []types.SolarReading) float64 {
	if len(readings) == 0 {
		return 0
	}

	latest := readings[len(readings)-1]

	socs := make([]float64, len(readings))
	nets := make([]float64, len(readings))
	for i, r := range readings {
		socs[i] = r.BatterySOC
		nets[i] = r.LoadPowerW - r.PVPowerW
	}

	// Low SOC contributes up to 0.5
	socScore := (100 - latest.BatterySOC) / 100 * 0.5

	// Falling SOC trend contributes up to 0.3
	trendScore := 0.0
	if slope := LinearTrend(socs); slope < 0 {
		trendScore = math.Min(-slope/2.0, 1.0) * 0.3
	}

	// Sustained net deficit contributes up to 0.2
	deficitScore := 0.0
	if avg := MovingAverage(nets, 10); avg > 0 {
		deficitScore = math.Min(avg/2000.0, 1.0) * 0.2
	}

	return Clamp01(socScore + trendScore + deficitScore)
}

// LoadOpportunity scores how favorable the current moment is for
// running deferrable loads: high when production exceeds consumption
// with a healthy battery.
func LoadOpportunity(readings []types.SolarReading) float64 {
	if len(readings) == 0 {
		return 0
	}

	latest := readings[len(readings)-1]
	surplus := latest.PVPowerW - latest.LoadPowerW
	if surplus <= 0 {
		return 0
	}

	surplusScore := math.Min(surplus/3000.0, 1.0) * 0.7
	socScore := latest.BatterySOC / 100 * 0.3

	return Clamp01(surplusScore + socScore)
}

// WeatherCorrelation returns the Pearson correlation between PV output
// and inverted cloud cover over paired samples. Returns 0 with fewer
// than two pairs or zero variance.
func WeatherCorrelation(solar []types.SolarReading, weather []types.WeatherReading) float64 {
	n := len(solar)
	if len(weather) < n {
		n = len(weather)
	}
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i := 0; i < n; i++ {
		x := solar[i].PVPowerW
		y := 100 - weather[i].CloudCover
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		sumYY += y * y
	}

	fn := float64(n)
	cov := fn*sumXY - sumX*sumY
	varX := fn*sumXX - sumX*sumX
	varY := fn*sumYY - sumY*sumY
	if varX <= 0 || varY <= 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// Clamp01 clamps v into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
