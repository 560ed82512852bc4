package fishing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func bassDay() *ForecastMetrics {
	return &ForecastMetrics{
		LowTempF:      65,
		HighTempF:     75,
		TotalPrecipIn: 0,
		AvgWindMph:    5,
		WindDeg:       90,
		PressureHpa:   1008,
		CloudCover:    40,
		Humidity:      55,
		MoonPhase:     PhaseFromFraction(0.5),
		TempTrend:     TrendStable,
	}
}

func TestScoreWithoutWaterStation(t *testing.T) {
	water := WaterMetrics{}
	rng := SpeciesTempRange{Min: 68, Max: 78}

	// 50 + 10 air + 5 wind + 3 easterly + 5 pressure + 10 full moon.
	assert.Equal(t, 83, Points(bassDay(), &water, &rng))
	assert.Equal(t, 4, Score(bassDay(), &water, &rng))
}

func TestScoreWaterTemperatureRules(t *testing.T) {
	rng := SpeciesTempRange{Min: 68, Max: 78}

	inRange := WaterMetrics{WaterTempF: ptr(72.0)}
	assert.Equal(t, 70, Points(nil, &inRange, &rng))

	slightlyOut := WaterMetrics{WaterTempF: ptr(85.0)}
	assert.Equal(t, 50, Points(nil, &slightlyOut, &rng))

	farOut := WaterMetrics{WaterTempF: ptr(50.0)}
	assert.Equal(t, 40, Points(nil, &farOut, &rng))

	assert.Equal(t, 50, Points(nil, &inRange, nil))
}

func TestScoreGageHeightBonus(t *testing.T) {
	water := WaterMetrics{GageHeightFt: ptr(0.0)}
	assert.Equal(t, 55, Points(nil, &water, nil))
}

func TestScoreWeatherPenalties(t *testing.T) {
	f := &ForecastMetrics{
		LowTempF:      40,
		HighTempF:     70,
		TotalPrecipIn: 1.2,
		AvgWindMph:    20,
		WindDeg:       270,
		PressureHpa:   1020,
		MoonPhase:     MoonUnknown,
	}
	// 50 - 5 spread - 5 heavy rain - 10 strong wind.
	assert.Equal(t, 30, Points(f, nil, nil))
	assert.Equal(t, 2, Score(f, nil, nil))
}

func TestScoreLightPrecipBonus(t *testing.T) {
	f := &ForecastMetrics{LowTempF: 40, HighTempF: 55, TotalPrecipIn: 0.05, PressureHpa: 1020}
	assert.Equal(t, 55, Points(f, nil, nil))
}

func TestScoreClampsAndStars(t *testing.T) {
	assert.Equal(t, 1, Stars(0))
	assert.Equal(t, 1, Stars(9))
	assert.Equal(t, 3, Stars(50))
	assert.Equal(t, 5, Stars(100))
	assert.Equal(t, 5, Stars(150))

	for _, f := range []*ForecastMetrics{nil, bassDay()} {
		s := Score(f, nil, nil)
		assert.GreaterOrEqual(t, s, 1)
		assert.LessOrEqual(t, s, 5)
	}
}

func TestScoreNilForecastSkipsWeather(t *testing.T) {
	assert.Equal(t, scoreBase, Points(nil, nil, nil))
	assert.Equal(t, 3, Score(nil, nil, nil))
}

func TestMoonPoints(t *testing.T) {
	assert.Equal(t, 10, MoonPoints(MoonNew))
	assert.Equal(t, 10, MoonPoints(MoonFull))
	assert.Equal(t, 5, MoonPoints(MoonFirstQuarter))
	assert.Equal(t, 5, MoonPoints(MoonLastQuarter))
	assert.Equal(t, 3, MoonPoints(MoonWaxingCrescent))
	assert.Equal(t, 3, MoonPoints(MoonWaningGibbous))
	assert.Equal(t, 0, MoonPoints(MoonUnknown))
}

func TestMoonFractionAndNameScoreAlike(t *testing.T) {
	byFraction := MoonPoints(PhaseFromFraction(0.5))
	byName := MoonPoints(ParseMoonPhase("Full Moon"))
	assert.Equal(t, 10, byFraction)
	assert.Equal(t, byFraction, byName)
}
