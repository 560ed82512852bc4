package fishing

import (
	"math"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"

	// MaxDaysAhead is the forecast horizon of the weather provider.
	MaxDaysAhead = 7

	// hourlyTolerance bounds how far the nearest hourly bucket may sit from the target hour.
	hourlyTolerance = 3 * time.Hour

	trendThresholdF = 3.0

	// usgsNoData is the value USGS reports for a missing reading.
	usgsNoData = -999999
)

// MoonPhase is one of the eight named lunar phases.
type MoonPhase string

const (
	MoonUnknown        MoonPhase = "Unknown"
	MoonNew            MoonPhase = "New Moon"
	MoonWaxingCrescent MoonPhase = "Waxing Crescent"
	MoonFirstQuarter   MoonPhase = "First Quarter"
	MoonWaxingGibbous  MoonPhase = "Waxing Gibbous"
	MoonFull           MoonPhase = "Full Moon"
	MoonWaningGibbous  MoonPhase = "Waning Gibbous"
	MoonLastQuarter    MoonPhase = "Last Quarter"
	MoonWaningCrescent MoonPhase = "Waning Crescent"
)

// moonPhases is ordered by canonical fraction; index i sits at i/8.
var moonPhases = [8]MoonPhase{
	MoonNew,
	MoonWaxingCrescent,
	MoonFirstQuarter,
	MoonWaxingGibbous,
	MoonFull,
	MoonWaningGibbous,
	MoonLastQuarter,
	MoonWaningCrescent,
}

// PhaseFromFraction maps a lunar cycle fraction onto the eight phases.
// Each phase owns a 0.125 wide bin centred on its canonical fraction, so exact
// quarter values always land on the named quarter. 1 is treated as a new moon.
func PhaseFromFraction(f float64) MoonPhase {
	if math.IsNaN(f) || f < 0 || f > 1 {
		return MoonUnknown
	}
	idx := int(math.Floor(f*8+0.5)) % 8
	return moonPhases[idx]
}

// ParseMoonPhase accepts a phase name in any case; unrecognized names yield MoonUnknown.
func ParseMoonPhase(name string) MoonPhase {
	name = strings.TrimSpace(name)
	for _, p := range moonPhases {
		if strings.EqualFold(string(p), name) {
			return p
		}
	}
	return MoonUnknown
}

// Fraction returns the canonical cycle fraction of the phase.
func (p MoonPhase) Fraction() (float64, bool) {
	for i, q := range moonPhases {
		if q == p {
			return float64(i) / 8, true
		}
	}
	return 0, false
}

// DailyConditions is one daily bucket in canonical units (°F, inches, mph, hPa, percent).
type DailyConditions struct {
	Date              time.Time `json:"date"`
	LowTempF          float64   `json:"lowTempF"`
	HighTempF         float64   `json:"highTempF"`
	PrecipIn          *float64  `json:"precipIn,omitempty"`
	PrecipProbability float64   `json:"precipProbability"`
	WindMph           float64   `json:"windMph"`
	WindDeg           float64   `json:"windDeg"`
	PressureHpa       float64   `json:"pressureHpa"`
	CloudCover        float64   `json:"cloudCover"`
	Humidity          float64   `json:"humidity"`
	MoonPhase         MoonPhase `json:"moonPhase"`
}

// MeanTempF is the midpoint of the daily range.
func (d DailyConditions) MeanTempF() float64 {
	return (d.LowTempF + d.HighTempF) / 2
}

// WeatherSeries is the normalized form of a WeatherPayload; this is what gets cached.
type WeatherSeries struct {
	Daily     []DailyConditions `json:"daily"`
	Hourly    []HourlyForecast  `json:"hourly"`
	FetchedAt time.Time         `json:"fetchedAt"`
}

// NormalizeWeather converts a raw payload into canonical units and enforces the
// snapshot invariants (low <= high, percentages within [0,100]).
func NormalizeWeather(raw WeatherPayload, fetchedAt time.Time) WeatherSeries {
	series := WeatherSeries{
		Daily:     make([]DailyConditions, 0, len(raw.Daily)),
		Hourly:    append([]HourlyForecast(nil), raw.Hourly...),
		FetchedAt: fetchedAt,
	}

	for _, d := range raw.Daily {
		low, high := d.TempMinF, d.TempMaxF
		if low > high {
			low, high = high, low
		}

		var precip *float64
		if d.RainMm != nil {
			in := InchesFromMillimetres(math.Max(*d.RainMm, 0))
			precip = &in
		}

		phase := MoonUnknown
		if d.MoonPhase != nil {
			phase = PhaseFromFraction(*d.MoonPhase)
		}

		series.Daily = append(series.Daily, DailyConditions{
			Date:              d.Time,
			LowTempF:          low,
			HighTempF:         high,
			PrecipIn:          precip,
			PrecipProbability: clamp(d.Pop, 0, 1),
			WindMph:           math.Max(d.WindSpeedMph, 0),
			WindDeg:           math.Mod(math.Max(d.WindDeg, 0), 360),
			PressureHpa:       d.PressureHpa,
			CloudCover:        clamp(d.Clouds, 0, 100),
			Humidity:          clamp(d.Humidity, 0, 100),
			MoonPhase:         phase,
		})
	}

	return series
}

// LocalMidnight truncates t to midnight of its calendar day in loc.
func LocalMidnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// CalendarDate places the year, month and day of t at midnight in loc,
// ignoring t's own zone.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayOffset is the number of whole calendar days from today (now in loc) to the
// calendar date of target.
func DayOffset(target, now time.Time, loc *time.Location) int {
	n := now.In(loc)
	// Compare civil dates in UTC so DST transitions do not shorten a day.
	tu := CalendarDate(target, time.UTC)
	nu := CalendarDate(n, time.UTC)
	return int(tu.Sub(nu).Hours() / 24)
}

// ValidateTargetDate returns the day offset of target, or a DateOutOfRangeError
// when it is before today or more than MaxDaysAhead days ahead.
func ValidateTargetDate(target, now time.Time, loc *time.Location) (int, error) {
	offset := DayOffset(target, now, loc)
	if offset < 0 || offset > MaxDaysAhead {
		return 0, &DateOutOfRangeError{
			Target:  CalendarDate(target, loc),
			Today:   LocalMidnight(now, loc),
			MaxDays: MaxDaysAhead,
		}
	}
	return offset, nil
}

// TargetHour is the representative clock hour of a time-of-day band.
func TargetHour(tod TimeOfDay) int {
	switch tod {
	case Morning:
		return 9
	case Afternoon:
		return 15
	case Evening:
		return 18
	case Night:
		return 21
	default:
		return 12
	}
}

// TargetTime is the instant used to pick the hourly bucket.
func TargetTime(date time.Time, tod TimeOfDay, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), TargetHour(tod), 0, 0, 0, loc)
}

// DailyFrom drops the buckets dated before day in loc, so index 0 of the result
// is day even when the series was fetched on an earlier date. Buckets without a
// date are kept in place.
func DailyFrom(daily []DailyConditions, day time.Time, loc *time.Location) []DailyConditions {
	start := CalendarDate(day, time.UTC)
	for i, d := range daily {
		if d.Date.IsZero() {
			return daily
		}
		if !CalendarDate(d.Date.In(loc), time.UTC).Before(start) {
			return daily[i:]
		}
	}
	return nil
}

// SelectDaily returns the bucket at offset, clamped to the last available bucket.
func SelectDaily(daily []DailyConditions, offset int) (DailyConditions, bool) {
	if len(daily) == 0 {
		return DailyConditions{}, false
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(daily) {
		offset = len(daily) - 1
	}
	return daily[offset], true
}

// SelectHourly returns the bucket nearest to target, if one lies within tolerance.
func SelectHourly(hourly []HourlyForecast, target time.Time) (HourlyForecast, bool) {
	var (
		best     HourlyForecast
		bestDiff time.Duration = -1
	)
	for _, h := range hourly {
		diff := h.Time.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best = h
			bestDiff = diff
		}
	}
	if bestDiff < 0 || bestDiff > hourlyTolerance {
		return HourlyForecast{}, false
	}
	return best, true
}

// TrendFrom compares the target day's mean temperature with a reference mean.
func TrendFrom(current, reference float64) TempTrend {
	switch delta := current - reference; {
	case delta > trendThresholdF:
		return TrendWarming
	case delta < -trendThresholdF:
		return TrendCooling
	default:
		return TrendStable
	}
}

// BuildForecastMetrics flattens a daily bucket plus optional hourly bucket into ForecastMetrics.
func BuildForecastMetrics(day DailyConditions, hourly *HourlyForecast, trend TempTrend) ForecastMetrics {
	m := ForecastMetrics{
		LowTempF:          day.LowTempF,
		HighTempF:         day.HighTempF,
		PrecipProbability: day.PrecipProbability,
		AvgWindMph:        day.WindMph,
		WindDeg:           day.WindDeg,
		PressureHpa:       day.PressureHpa,
		CloudCover:        day.CloudCover,
		Humidity:          day.Humidity,
		MoonPhase:         day.MoonPhase,
		TempTrend:         trend,
	}
	if day.PrecipIn != nil {
		m.TotalPrecipIn = *day.PrecipIn
	}
	if hourly != nil {
		t := hourly.TempF
		m.HourlyTempF = &t
	}
	return m
}

// WaterFromSeries extracts the latest usable reading of each parameter and
// converts it into WaterMetrics. Empty input yields all-null metrics.
func WaterFromSeries(series []TimeSeries) WaterMetrics {
	var w WaterMetrics

	if v, ok := latestValue(series, ParamWaterTemp); ok {
		f := FahrenheitFromCelsius(v)
		w.WaterTempF = &f
	}
	if v, ok := latestValue(series, ParamGageHeight); ok {
		w.GageHeightFt = &v
	}
	if v, ok := latestValue(series, ParamDischarge); ok {
		w.FlowRateCfs = &v
	}
	if v, ok := latestValue(series, ParamTurbidity); ok {
		c := ClarityFromTurbidity(v)
		w.Clarity = &c
	}

	return w
}

func latestValue(series []TimeSeries, code string) (float64, bool) {
	for _, ts := range series {
		if ts.ParameterCode != code {
			continue
		}
		for i := len(ts.Values) - 1; i >= 0; i-- {
			v := ts.Values[i]
			if math.IsNaN(v) || v <= usgsNoData {
				continue
			}
			return v, true
		}
	}
	return 0, false
}

// ClarityFromTurbidity buckets a turbidity reading in FNU.
func ClarityFromTurbidity(fnu float64) Clarity {
	switch {
	case fnu < 10:
		return ClarityClear
	case fnu < 50:
		return ClaritySlightlyMurky
	default:
		return ClarityMurky
	}
}

func FahrenheitFromCelsius(c float64) float64 {
	return c*9/5 + 32
}

func InchesFromMillimetres(mm float64) float64 {
	return mm / 25.4
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
