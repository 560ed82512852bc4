package fishing

// Water forecasting is a coarse heuristic, not a physical model. It exists so
// that a future date still gets plausible water numbers when no station can
// observe them yet: each forecast day nudges the latest observation by a fixed
// fraction of that day's air temperature and rainfall.

const (
	defaultWaterTempF   = 60.0
	defaultGageHeightFt = 1.0

	waterTempPerAirDegree = 0.05
	flatWaterTempDrift    = 0.5

	gagePerPrecipInch = 0.1
	flatGageDrift     = 0.05

	flowPerGageFoot   = 100.0
	flowPerPrecipInch = 50.0
	flatFlowDrift     = 10.0

	murkyPrecipIn         = 0.5
	slightlyMurkyPrecipIn = 0.1
)

// ForecastWater extrapolates baseline daysAhead days forward using the daily
// forecast series, whose index 0 is today. A non-positive daysAhead returns the
// baseline unchanged and marked as observed.
func ForecastWater(baseline WaterMetrics, daysAhead int, daily []DailyConditions) WaterMetrics {
	if daysAhead <= 0 {
		baseline.IsForecasted = false
		return baseline
	}

	baseTemp := defaultWaterTempF
	if baseline.WaterTempF != nil {
		baseTemp = *baseline.WaterTempF
	}
	baseHeight := defaultGageHeightFt
	if baseline.GageHeightFt != nil {
		baseHeight = *baseline.GageHeightFt
	}

	var out WaterMetrics
	for i := 0; i < daysAhead; i++ {
		day, ok := forecastDay(daily, i)
		steps := float64(i + 1)

		tempAdj := flatWaterTempDrift
		if ok {
			tempAdj = waterTempPerAirDegree * (day.HighTempF - 32)
		}

		heightAdj := flatGageDrift
		flowAdj := flatFlowDrift
		clarity := ClarityClear
		// No rain counts as no data, and the flat drift applies.
		if ok && day.PrecipIn != nil && *day.PrecipIn > 0 {
			precip := *day.PrecipIn
			heightAdj = gagePerPrecipInch * precip
			flowAdj = flowPerPrecipInch * precip
			clarity = ClarityFromPrecip(precip)
		}

		temp := baseTemp + tempAdj*steps
		height := baseHeight + heightAdj*steps
		flow := baseHeight*flowPerGageFoot + flowAdj*steps
		c := clarity

		out = WaterMetrics{
			WaterTempF:   &temp,
			GageHeightFt: &height,
			Clarity:      &c,
			FlowRateCfs:  &flow,
			IsForecasted: true,
		}
	}

	return out
}

// ClarityFromPrecip categorizes expected clarity from a day's rainfall in inches.
func ClarityFromPrecip(precipIn float64) Clarity {
	switch {
	case precipIn > murkyPrecipIn:
		return ClarityMurky
	case precipIn > slightlyMurkyPrecipIn:
		return ClaritySlightlyMurky
	default:
		return ClarityClear
	}
}

// forecastDay returns day i, falling back to the last day when the series is short.
func forecastDay(daily []DailyConditions, i int) (DailyConditions, bool) {
	if len(daily) == 0 {
		return DailyConditions{}, false
	}
	if i < len(daily) {
		return daily[i], true
	}
	return daily[len(daily)-1], true
}
