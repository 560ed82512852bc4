package fishing

import "math"

// Scoring policy. These are empirical tuning constants; the pipeline does not
// depend on their values.
const (
	scoreBase = 50
	scoreMin  = 0
	scoreMax  = 100

	waterInRangeBonus      = 20
	waterFarOutsidePenalty = -10
	waterFarOutsideMarginF = 10.0

	comfortableLowF     = 59.0
	comfortableHighF    = 80.0
	comfortableAirBonus = 10
	wideSpreadF         = 20.0
	wideSpreadPenalty   = -5

	lightPrecipMaxIn   = 0.1
	lightPrecipBonus   = 5
	heavyPrecipMinIn   = 0.5
	heavyPrecipPenalty = -5

	gentleWindMinMph   = 3.0
	gentleWindMaxMph   = 10.0
	gentleWindBonus    = 5
	strongWindMinMph   = 15.0
	strongWindPenalty  = -10
	easterlyWindMinDeg = 45.0
	easterlyWindMaxDeg = 135.0
	easterlyWindBonus  = 3

	lowPressureHpa   = 1013.0
	lowPressureBonus = 5

	newOrFullMoonBonus = 10
	quarterMoonBonus   = 5
	otherMoonBonus     = 3

	gageReportedBonus = 5

	maxStars = 5
	minStars = 1
)

// Score maps conditions onto a 1–5 star rating. A nil forecast skips every
// weather adjustment; nil water or species range skips the water temperature rules.
func Score(forecast *ForecastMetrics, water *WaterMetrics, speciesRange *SpeciesTempRange) int {
	return Stars(Points(forecast, water, speciesRange))
}

// Points is the clamped 0–100 point total behind Score.
func Points(forecast *ForecastMetrics, water *WaterMetrics, speciesRange *SpeciesTempRange) int {
	total := scoreBase

	if water != nil && water.WaterTempF != nil && speciesRange != nil {
		t := *water.WaterTempF
		if t >= speciesRange.Min && t <= speciesRange.Max {
			total += waterInRangeBonus
		}
		if t < speciesRange.Min-waterFarOutsideMarginF || t > speciesRange.Max+waterFarOutsideMarginF {
			total += waterFarOutsidePenalty
		}
	}

	if forecast != nil {
		total += weatherPoints(*forecast)
	}

	if water != nil && water.GageHeightFt != nil {
		total += gageReportedBonus
	}

	return int(clamp(float64(total), scoreMin, scoreMax))
}

// Stars converts clamped points into stars, never reporting fewer than one.
func Stars(points int) int {
	stars := int(math.Round(float64(points) / scoreMax * maxStars))
	if stars < minStars {
		return minStars
	}
	if stars > maxStars {
		return maxStars
	}
	return stars
}

func weatherPoints(f ForecastMetrics) int {
	total := 0

	if f.LowTempF >= comfortableLowF && f.HighTempF <= comfortableHighF {
		total += comfortableAirBonus
	}
	if f.HighTempF-f.LowTempF > wideSpreadF {
		total += wideSpreadPenalty
	}

	if f.TotalPrecipIn > 0 && f.TotalPrecipIn <= lightPrecipMaxIn {
		total += lightPrecipBonus
	}
	if f.TotalPrecipIn > heavyPrecipMinIn {
		total += heavyPrecipPenalty
	}

	if f.AvgWindMph >= gentleWindMinMph && f.AvgWindMph <= gentleWindMaxMph {
		total += gentleWindBonus
	}
	if f.AvgWindMph > strongWindMinMph {
		total += strongWindPenalty
	}
	if f.WindDeg >= easterlyWindMinDeg && f.WindDeg <= easterlyWindMaxDeg {
		total += easterlyWindBonus
	}

	if f.PressureHpa < lowPressureHpa {
		total += lowPressureBonus
	}

	total += MoonPoints(f.MoonPhase)

	return total
}

// MoonPoints scores a named phase through its canonical fraction.
func MoonPoints(p MoonPhase) int {
	frac, ok := p.Fraction()
	if !ok {
		return 0
	}
	switch {
	case frac == 0 || frac == 0.5:
		return newOrFullMoonBonus
	case frac == 0.25 || frac == 0.75:
		return quarterMoonBonus
	case frac > 0 && frac < 1:
		return otherMoonBonus
	default:
		return 0
	}
}
