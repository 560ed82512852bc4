package fishing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow   = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	testCoord = Coordinate{Latitude: 30.6954, Longitude: -88.0399}
)

type fakeWeather struct {
	mu      sync.Mutex
	payload WeatherPayload
	errs    []error
	calls   int
}

func (f *fakeWeather) Name() string { return "fake-weather" }

func (f *fakeWeather) FetchForecast(context.Context, Coordinate) (WeatherPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return WeatherPayload{}, err
		}
	}
	return f.payload, nil
}

func (f *fakeWeather) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeWater struct {
	series []TimeSeries
	err    error
	box    BoundingBox
	date   time.Time
	calls  int
}

func (f *fakeWater) Name() string { return "fake-water" }

func (f *fakeWater) FetchSeries(_ context.Context, box BoundingBox, _ []string, date time.Time) ([]TimeSeries, error) {
	f.calls++
	f.box = box
	f.date = date
	return f.series, f.err
}

type fakeRanger struct {
	rng   SpeciesTempRange
	err   error
	calls int
}

func (f *fakeRanger) SpeciesRange(context.Context, string) (SpeciesTempRange, error) {
	f.calls++
	return f.rng, f.err
}

type fakeLister struct {
	list []string
	err  error
}

func (f *fakeLister) SpeciesList(context.Context, string) ([]string, error) {
	return f.list, f.err
}

type fakeHistory struct {
	recent RecentWeather
	err    error
}

func (f *fakeHistory) RecentWeather(context.Context, Coordinate, time.Time, time.Time) (RecentWeather, error) {
	return f.recent, f.err
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]WeatherSeries
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]WeatherSeries)}
}

func (c *mapCache) Get(_ context.Context, key string) (WeatherSeries, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.data[key]
	return s, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, s WeatherSeries) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = s
	return nil
}

func (c *mapCache) Prune(context.Context) int { return 0 }

// weekOfWeather returns eight daily buckets starting today, each matching the
// calm late-spring day used across these tests, with 3-hourly temperatures.
func weekOfWeather() WeatherPayload {
	var p WeatherPayload
	for i := 0; i <= MaxDaysAhead; i++ {
		day := testNow.AddDate(0, 0, i).Truncate(24 * time.Hour)
		p.Daily = append(p.Daily, DailyForecast{
			Time:         day.Add(12 * time.Hour),
			TempMinF:     65,
			TempMaxF:     75,
			RainMm:       ptr(0.0),
			WindSpeedMph: 5,
			WindDeg:      90,
			PressureHpa:  1008,
			Clouds:       40,
			Humidity:     55,
			MoonPhase:    ptr(0.5),
			Pop:          0.1,
		})
		for h := 0; h < 24; h += 3 {
			p.Hourly = append(p.Hourly, HourlyForecast{Time: day.Add(time.Duration(h) * time.Hour), TempF: 60 + float64(h)})
		}
	}
	return p
}

type serviceFixture struct {
	weather *fakeWeather
	water   *fakeWater
	ranger  *fakeRanger
	cache   *mapCache
	sleeper *recordingSleeper
	svc     *Service
}

func newFixture(t *testing.T, mutate func(*Dependencies)) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		weather: &fakeWeather{payload: weekOfWeather()},
		water:   &fakeWater{},
		ranger:  &fakeRanger{rng: SpeciesTempRange{Min: 68, Max: 78}},
		cache:   newMapCache(),
		sleeper: &recordingSleeper{},
	}
	deps := Dependencies{
		Weather: f.weather,
		Water:   f.water,
		Species: f.ranger,
		Cache:   f.cache,
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.svc = NewService(deps,
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
		WithSleeper(f.sleeper.Sleep),
	)
	return f
}

func bassRequest(offset int) ConditionsRequest {
	c := testCoord
	return ConditionsRequest{
		Coordinate:  &c,
		TargetDate:  testNow.AddDate(0, 0, offset),
		TimeOfDay:   Morning,
		Species:     "Largemouth Bass",
		FishingType: "Freshwater",
	}
}

func TestGetConditionsNoWaterStation(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.GetConditions(context.Background(), bassRequest(0))
	require.NoError(t, err)

	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, "2026-06-01", res.Date)
	assert.False(t, res.Degraded())

	assert.True(t, res.Snapshot.Water.Empty())
	assert.False(t, res.Snapshot.Water.IsForecasted)
	assert.Equal(t, SpeciesTempRange{Min: 68, Max: 78}, res.Snapshot.SpeciesRange)

	require.NotNil(t, res.Snapshot.Forecast)
	fc := res.Snapshot.Forecast
	assert.Equal(t, MoonFull, fc.MoonPhase)
	assert.Equal(t, TrendStable, fc.TempTrend)
	require.NotNil(t, fc.HourlyTempF)
	assert.Equal(t, 69.0, *fc.HourlyTempF, "morning picks the 09:00 bucket")

	assert.Equal(t, 4, res.Score)

	assert.Equal(t, BoxAround(testCoord, 0.5), f.water.box)
	assert.Equal(t, "2026-06-01", f.water.date.Format(dateLayout))
}

func TestGetConditionsDateRange(t *testing.T) {
	for _, offset := range []int{-1, 8} {
		f := newFixture(t, nil)
		_, err := f.svc.GetConditions(context.Background(), bassRequest(offset))
		require.ErrorIs(t, err, ErrDateOutOfRange, "offset %d", offset)
		assert.Zero(t, f.weather.Calls(), "nothing is fetched for an invalid date")
		assert.Zero(t, f.water.calls)
	}

	for _, offset := range []int{0, 7} {
		f := newFixture(t, nil)
		res, err := f.svc.GetConditions(context.Background(), bassRequest(offset))
		require.NoError(t, err, "offset %d", offset)
		assert.Equal(t, testNow.AddDate(0, 0, offset).Format(dateLayout), res.Date)
	}
}

func TestGetConditionsMissingCoordinates(t *testing.T) {
	f := newFixture(t, nil)

	req := bassRequest(0)
	req.Coordinate = nil
	_, err := f.svc.GetConditions(context.Background(), req)
	require.ErrorIs(t, err, ErrMissingCoordinates)
	assert.True(t, IsFatal(err))

	req.Coordinate = &Coordinate{Latitude: 123, Longitude: 0}
	_, err = f.svc.GetConditions(context.Background(), req)
	require.ErrorIs(t, err, ErrMissingCoordinates)
}

func TestGetConditionsWeatherFailureDegrades(t *testing.T) {
	f := newFixture(t, nil)
	f.weather.errs = []error{ErrUpstreamUnavailable}
	f.water.series = []TimeSeries{{ParameterCode: ParamWaterTemp, Values: []float64{22}}}

	res, err := f.svc.GetConditions(context.Background(), bassRequest(0))
	require.NoError(t, err)

	assert.Nil(t, res.Snapshot.Forecast)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, SourceWeather, res.Diagnostics[0].Source)
	assert.Equal(t, KindUpstreamUnavailable, res.Diagnostics[0].Kind)

	require.NotNil(t, res.Snapshot.Water.WaterTempF)
	assert.InDelta(t, 71.6, *res.Snapshot.Water.WaterTempF, 1e-9)
	// 50 + 20 water temperature in range, no weather adjustments.
	assert.Equal(t, 4, res.Score)
}

func TestGetConditionsWaterFailureDegrades(t *testing.T) {
	f := newFixture(t, nil)
	f.water.err = ErrUpstreamUnavailable

	res, err := f.svc.GetConditions(context.Background(), bassRequest(2))
	require.NoError(t, err)

	assert.True(t, res.Snapshot.Water.Empty())
	assert.False(t, res.Snapshot.Water.IsForecasted)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, SourceWater, res.Diagnostics[0].Source)
	assert.Equal(t, KindUpstreamUnavailable, res.Diagnostics[0].Kind)

	require.NotNil(t, res.Snapshot.Forecast)
	assert.Equal(t, SpeciesTempRange{Min: 68, Max: 78}, res.Snapshot.SpeciesRange)
	assert.Equal(t, 4, res.Score)
	assert.Equal(t, 1, f.water.calls, "only rate limits are retried")
}

func TestGetConditionsCachedSeriesAcrossMidnight(t *testing.T) {
	now := time.Date(2026, 6, 1, 23, 0, 0, 0, time.UTC)

	payload := weekOfWeather()
	for i := range payload.Daily {
		payload.Daily[i].TempMinF = 50 + float64(i)
		payload.Daily[i].TempMaxF = 70 + float64(i)
	}
	weather := &fakeWeather{payload: payload}
	water := &fakeWater{series: []TimeSeries{{ParameterCode: ParamWaterTemp, Values: []float64{20}}}}

	svc := NewService(Dependencies{
		Weather: weather,
		Water:   water,
		Cache:   newMapCache(),
	},
		WithClock(func() time.Time { return now }),
		WithLocation(time.UTC),
	)

	c := testCoord
	req := ConditionsRequest{
		Coordinate:  &c,
		TargetDate:  time.Date(2026, 6, 4, 0, 0, 0, 0, time.UTC),
		TimeOfDay:   Evening,
		FishingType: "Shore",
	}

	before, err := svc.GetConditions(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, before.Snapshot.Forecast)
	assert.Equal(t, 53.0, before.Snapshot.Forecast.LowTempF)

	now = now.Add(2 * time.Hour)
	after, err := svc.GetConditions(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, after.Snapshot.Forecast)

	assert.Equal(t, 1, weather.Calls(), "second request is served from cache")
	assert.Equal(t, "2026-06-04", after.Date)
	assert.Equal(t, before.Snapshot.Forecast.LowTempF, after.Snapshot.Forecast.LowTempF)
	assert.Equal(t, before.Snapshot.Forecast.HighTempF, after.Snapshot.Forecast.HighTempF)

	// The water forecast walks from the day of the request, not the day of the fetch.
	// 68 + 0.05*(72-32)*2 with 06-03 as the last step's bucket.
	require.NotNil(t, after.Snapshot.Water.WaterTempF)
	assert.InDelta(t, 72.0, *after.Snapshot.Water.WaterTempF, 1e-9)
}

func TestGetConditionsRetriesRateLimitedWeather(t *testing.T) {
	f := newFixture(t, nil)
	f.weather.errs = []error{ErrRateLimited, ErrRateLimited}

	res, err := f.svc.GetConditions(context.Background(), bassRequest(0))
	require.NoError(t, err)

	assert.NotNil(t, res.Snapshot.Forecast)
	assert.Equal(t, 3, f.weather.Calls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleeper.delays)
	assert.False(t, res.Degraded())
}

func TestGetConditionsReusesCachedWeather(t *testing.T) {
	f := newFixture(t, nil)

	for _, tod := range []TimeOfDay{Morning, Evening, Night} {
		req := bassRequest(2)
		req.TimeOfDay = tod
		res, err := f.svc.GetConditions(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, res.Snapshot.Forecast)
	}

	assert.Equal(t, 1, f.weather.Calls())
	_, ok, _ := f.cache.Get(context.Background(), CacheKey(testCoord, testNow.AddDate(0, 0, 2)))
	assert.True(t, ok)
}

func TestGetConditionsForecastsFutureWater(t *testing.T) {
	f := newFixture(t, nil)
	f.water.series = []TimeSeries{
		{ParameterCode: ParamWaterTemp, Values: []float64{20}},
		{ParameterCode: ParamGageHeight, Values: []float64{2}},
	}

	res, err := f.svc.GetConditions(context.Background(), bassRequest(2))
	require.NoError(t, err)

	w := res.Snapshot.Water
	require.True(t, w.IsForecasted)
	// 68 + 0.05*(75-32)*2; dry days drift the gage by the flat 0.05 ft.
	assert.InDelta(t, 72.3, *w.WaterTempF, 1e-9)
	assert.InDelta(t, 2.1, *w.GageHeightFt, 1e-9)
	assert.InDelta(t, 220.0, *w.FlowRateCfs, 1e-9)
	assert.Equal(t, ClarityClear, *w.Clarity)
	assert.Equal(t, "2026-06-01", f.water.date.Format(dateLayout), "stations are read for today")
}

func TestGetConditionsSpeciesRange(t *testing.T) {
	t.Run("unset species skips lookup", func(t *testing.T) {
		f := newFixture(t, nil)
		req := bassRequest(0)
		req.Species = SpeciesOther

		res, err := f.svc.GetConditions(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, DefaultSpeciesRange, res.Snapshot.SpeciesRange)
		assert.Zero(t, f.ranger.calls)
	})

	t.Run("implausible range falls back", func(t *testing.T) {
		f := newFixture(t, nil)
		f.ranger.rng = SpeciesTempRange{Min: 90, Max: 40}

		res, err := f.svc.GetConditions(context.Background(), bassRequest(0))
		require.NoError(t, err)
		assert.Equal(t, DefaultSpeciesRange, res.Snapshot.SpeciesRange)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, SourceSpecies, res.Diagnostics[0].Source)
		assert.Equal(t, KindMalformedResponse, res.Diagnostics[0].Kind)
	})

	t.Run("lookup failure falls back", func(t *testing.T) {
		f := newFixture(t, nil)
		f.ranger.err = ErrContentPolicy

		res, err := f.svc.GetConditions(context.Background(), bassRequest(0))
		require.NoError(t, err)
		assert.Equal(t, DefaultSpeciesRange, res.Snapshot.SpeciesRange)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, KindContentPolicy, res.Diagnostics[0].Kind)
	})
}

func TestGetConditionsTrend(t *testing.T) {
	f := newFixture(t, func(d *Dependencies) {
		d.History = &fakeHistory{recent: RecentWeather{AvgTempF: 62}}
	})

	res, err := f.svc.GetConditions(context.Background(), bassRequest(0))
	require.NoError(t, err)
	require.NotNil(t, res.Snapshot.Recent)
	assert.Equal(t, TrendWarming, res.Snapshot.Forecast.TempTrend)

	cold := newFixture(t, nil)
	cold.weather.payload.Daily[3].TempMinF = 55
	cold.weather.payload.Daily[3].TempMaxF = 60

	res, err = cold.svc.GetConditions(context.Background(), bassRequest(3))
	require.NoError(t, err)
	assert.Nil(t, res.Snapshot.Recent, "history is only read for today")
	assert.Equal(t, TrendCooling, res.Snapshot.Forecast.TempTrend)
}

func TestGetConditionsHistoryFailureIsRecorded(t *testing.T) {
	f := newFixture(t, func(d *Dependencies) {
		d.History = &fakeHistory{err: ErrMalformedResponse}
	})

	res, err := f.svc.GetConditions(context.Background(), bassRequest(0))
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, SourceHistory, res.Diagnostics[0].Source)
	assert.Equal(t, TrendStable, res.Snapshot.Forecast.TempTrend)
}

func TestAdviseFallsBackWithDiagnostic(t *testing.T) {
	f := newFixture(t, func(d *Dependencies) {
		d.Advisor = &stubGenerator{err: errors.New("connection reset")}
	})

	rec, err := f.svc.Advise(context.Background(), bassRequest(0))
	require.NoError(t, err)
	assert.True(t, rec.Fallback)
	assert.Equal(t, KindUpstreamUnavailable, rec.FallbackReason)
	assert.Equal(t, FallbackBait, rec.Advice.Bait)
	assert.Equal(t, 4, rec.Score)

	require.Len(t, rec.Diagnostics, 1)
	assert.Equal(t, SourceAdvice, rec.Diagnostics[0].Source)
}

func TestAdviseUsesGeneratedAdvice(t *testing.T) {
	gen := &stubGenerator{out: `{"bait":"Topwater frog","strategy":"Fish the lily pads at first light"}`}
	f := newFixture(t, func(d *Dependencies) { d.Advisor = gen })

	rec, err := f.svc.Advise(context.Background(), bassRequest(1))
	require.NoError(t, err)
	assert.False(t, rec.Fallback)
	assert.Equal(t, "Topwater frog", rec.Advice.Bait)
	assert.Equal(t, rec.Score, gen.got.Score)
	require.NotNil(t, gen.got.Forecast)
}

func TestAdvisePropagatesFatalErrors(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Advise(context.Background(), bassRequest(9))
	assert.ErrorIs(t, err, ErrDateOutOfRange)
}

func TestRegionalSpecies(t *testing.T) {
	f := newFixture(t, func(d *Dependencies) {
		d.Lister = &fakeLister{list: []string{" Redfish ", "Speckled Trout", "redfish", "", "None"}}
	})
	assert.Equal(t, []string{"Redfish", "Speckled Trout", SpeciesNone, SpeciesOther},
		f.svc.RegionalSpecies(context.Background(), "Mobile, AL"))

	f = newFixture(t, func(d *Dependencies) {
		d.Lister = &fakeLister{err: ErrUpstreamUnavailable}
	})
	got := f.svc.RegionalSpecies(context.Background(), "Mobile, AL")
	assert.Equal(t, append(DefaultSpeciesList("Mobile, AL"), SpeciesNone, SpeciesOther), got)
	assert.Contains(t, got, "Redfish")

	got = f.svc.RegionalSpecies(context.Background(), "Denver, CO")
	assert.Contains(t, got, "Rainbow Trout")
	assert.Equal(t, SpeciesOther, got[len(got)-1])
}

func TestPrewarmFillsCache(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.svc.Prewarm(context.Background(), testCoord))
	_, ok, _ := f.cache.Get(context.Background(), CacheKey(testCoord, testNow))
	assert.True(t, ok)

	assert.ErrorIs(t, f.svc.Prewarm(context.Background(), Coordinate{Latitude: 100}), ErrMissingCoordinates)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "weather:30.70:-88.04:2026-06-01", CacheKey(testCoord, testNow))
}

func TestGetConditionsSnapshotInvariants(t *testing.T) {
	f := newFixture(t, nil)
	for i := range f.weather.payload.Daily {
		d := &f.weather.payload.Daily[i]
		d.TempMinF, d.TempMaxF = 90, 40
		d.Clouds = 180
		d.Humidity = -20
	}

	for offset := 0; offset <= MaxDaysAhead; offset++ {
		res, err := f.svc.GetConditions(context.Background(), bassRequest(offset))
		require.NoError(t, err)
		fc := res.Snapshot.Forecast
		require.NotNil(t, fc)
		assert.LessOrEqual(t, fc.LowTempF, fc.HighTempF)
		assert.True(t, fc.CloudCover >= 0 && fc.CloudCover <= 100)
		assert.True(t, fc.Humidity >= 0 && fc.Humidity <= 100)
		assert.True(t, res.Score >= 1 && res.Score <= 5)
	}
}
