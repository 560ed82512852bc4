package fishing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/fishing-forecast/internal/common"
)

const (
	// waterSearchMargin is the half-width in degrees of the station search box.
	waterSearchMargin = 0.5

	historyDays = 7
)

// Dependencies are the collaborators the Service orchestrates. Weather, Water
// and Species are required for full results; missing ones degrade like failures.
type Dependencies struct {
	Weather  WeatherProvider
	Water    WaterGauge
	Species  SpeciesRanger
	Lister   SpeciesLister
	History  WeatherHistory
	Advisor  AdviceGenerator
	Cache    Cache
	Geocoder Geocoder
}

// Service assembles conditions snapshots from unreliable upstream sources.
type Service struct {
	deps     Dependencies
	composer *Composer
	retry    RetryPolicy
	sleep    Sleeper
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Service) { s.retry = p }
}

// WithSleeper replaces the backoff sleep; tests use it to avoid real delays.
func WithSleeper(fn Sleeper) Option {
	return func(s *Service) { s.sleep = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the calendar used for "today" and time-of-day bands.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new Service.
func NewService(deps Dependencies, opts ...Option) *Service {
	s := &Service{
		deps:     deps,
		retry:    DefaultRetryPolicy(),
		sleep:    SleepContext,
		now:      time.Now,
		location: time.Local,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.composer = NewComposer(deps.Advisor, s.logger)
	return s
}

// CacheKey identifies cached weather by rounded coordinate and calendar date.
func CacheKey(c Coordinate, date time.Time) string {
	return fmt.Sprintf("weather:%.2f:%.2f:%s",
		common.Round(c.Latitude, 2), common.Round(c.Longitude, 2), date.Format(dateLayout))
}

// GetConditions validates the request, gathers weather, water and species data,
// and scores the result. Only DateOutOfRange and MissingCoordinates are returned
// as errors; every other failure is recorded as a diagnostic.
func (s *Service) GetConditions(ctx context.Context, req ConditionsRequest) (ConditionsResult, error) {
	if req.Coordinate == nil || !req.Coordinate.Valid() {
		return ConditionsResult{}, ErrMissingCoordinates
	}
	coord := *req.Coordinate

	now := s.now()
	offset, err := ValidateTargetDate(req.TargetDate, now, s.location)
	if err != nil {
		return ConditionsResult{}, err
	}

	today := LocalMidnight(now, s.location)
	target := today.AddDate(0, 0, offset)

	result := ConditionsResult{
		RequestID: uuid.NewString(),
		Date:      target.Format(dateLayout),
		TimeOfDay: req.TimeOfDay,
	}
	log := s.logger.With("request_id", result.RequestID, "date", result.Date)

	var (
		mu          sync.Mutex
		diagnostics []Diagnostic
	)
	record := func(source Source, err error) {
		d := diagnosticFor(source, err)
		log.Warn("sub-fetch degraded", "source", d.Source, "kind", d.Kind, "error", err)
		mu.Lock()
		diagnostics = append(diagnostics, d)
		mu.Unlock()
	}

	var (
		speciesRange = DefaultSpeciesRange
		forecast     *ForecastMetrics
		water        WaterMetrics
		recent       *RecentWeather
	)

	var g errgroup.Group

	g.Go(func() error {
		rng, err := s.fetchSpeciesRange(ctx, req)
		if err != nil {
			record(SourceSpecies, err)
		}
		speciesRange = rng
		return nil
	})

	g.Go(func() error {
		series, err := s.weatherSeries(ctx, coord, target)
		if err != nil {
			record(SourceWeather, err)
		}

		if offset == 0 {
			r, err := s.fetchRecent(ctx, coord, today)
			if err != nil {
				record(SourceHistory, err)
			} else {
				recent = r
			}
		}

		// A cached series may have been fetched on an earlier day.
		var daily []DailyConditions
		if series != nil {
			daily = DailyFrom(series.Daily, today, s.location)
			if day, ok := SelectDaily(daily, offset); ok {
				var hourly *HourlyForecast
				if h, ok := SelectHourly(series.Hourly, TargetTime(target, req.TimeOfDay, s.location)); ok {
					hourly = &h
				}
				m := BuildForecastMetrics(day, hourly, s.trend(daily, offset, day, recent))
				forecast = &m
			}
		}

		w, err := s.fetchWater(ctx, coord, today, offset, daily)
		if err != nil {
			record(SourceWater, err)
		}
		water = w
		return nil
	})

	_ = g.Wait()

	result.Snapshot = ConditionsSnapshot{
		Forecast:     forecast,
		Water:        water,
		SpeciesRange: speciesRange,
		Recent:       recent,
	}
	result.Score = Score(forecast, &result.Snapshot.Water, &result.Snapshot.SpeciesRange)
	result.Diagnostics = diagnostics

	log.Info("conditions assembled",
		"score", result.Score,
		"degraded", result.Degraded(),
		"water_forecasted", water.IsForecasted)

	return result, nil
}

// Advise runs GetConditions and then composes advice for the result.
func (s *Service) Advise(ctx context.Context, req ConditionsRequest) (Recommendation, error) {
	conditions, err := s.GetConditions(ctx, req)
	if err != nil {
		return Recommendation{}, err
	}

	outcome := s.composer.Compose(ctx, req, conditions)
	rec := Recommendation{
		ConditionsResult: conditions,
		Advice:           outcome.Advice,
		Fallback:         outcome.Fallback,
		FallbackReason:   outcome.Reason,
	}
	if outcome.Fallback {
		rec.Diagnostics = append(rec.Diagnostics, diagnosticFor(SourceAdvice, outcome.Err))
	}
	return rec, nil
}

// Prewarm loads today's weather for coord into the cache.
func (s *Service) Prewarm(ctx context.Context, coord Coordinate) error {
	if !coord.Valid() {
		return ErrMissingCoordinates
	}
	_, err := s.weatherSeries(ctx, coord, LocalMidnight(s.now(), s.location))
	return err
}

// PruneCache drops expired cache entries and returns how many were removed.
func (s *Service) PruneCache(ctx context.Context) int {
	if s.deps.Cache == nil {
		return 0
	}
	return s.deps.Cache.Prune(ctx)
}

// RegionalSpecies lists species commonly targeted near cityState, always ending
// with "None" and "Other".
func (s *Service) RegionalSpecies(ctx context.Context, cityState string) []string {
	var list []string
	if s.deps.Lister != nil {
		got, err := withRateLimitRetry(ctx, s.retry, s.sleep, func(ctx context.Context) ([]string, error) {
			return s.deps.Lister.SpeciesList(ctx, cityState)
		})
		if err != nil {
			s.logger.Warn("species list fetch failed, using defaults", "location", cityState, "error", err)
		} else {
			list = cleanSpeciesList(got)
		}
	}
	if len(list) == 0 {
		list = DefaultSpeciesList(cityState)
	}
	return append(list, SpeciesNone, SpeciesOther)
}

// Geocode resolves a "City, ST" query through the configured geocoder.
func (s *Service) Geocode(ctx context.Context, query string) (Coordinate, error) {
	if s.deps.Geocoder == nil {
		return Coordinate{}, fmt.Errorf("%w: no geocoder configured", ErrUpstreamUnavailable)
	}
	return s.deps.Geocoder.Geocode(ctx, query)
}

func (s *Service) weatherSeries(ctx context.Context, coord Coordinate, date time.Time) (*WeatherSeries, error) {
	key := CacheKey(coord, date)

	if s.deps.Cache != nil {
		cached, ok, err := s.deps.Cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("weather cache read failed", "key", key, "error", err)
		} else if ok {
			return &cached, nil
		}
	}

	if s.deps.Weather == nil {
		return nil, &FetchError{Source: SourceWeather, Err: fmt.Errorf("%w: no weather provider configured", ErrUpstreamUnavailable)}
	}

	raw, err := withRateLimitRetry(ctx, s.retry, s.sleep, func(ctx context.Context) (WeatherPayload, error) {
		return s.deps.Weather.FetchForecast(ctx, coord)
	})
	if err != nil {
		return nil, &FetchError{Source: SourceWeather, Err: err}
	}
	if len(raw.Daily) == 0 {
		return nil, &FetchError{Source: SourceWeather, Err: fmt.Errorf("%w: forecast has no daily buckets", ErrMalformedResponse)}
	}

	series := NormalizeWeather(raw, s.now())
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, series); err != nil {
			s.logger.Warn("weather cache write failed", "key", key, "error", err)
		}
	}
	return &series, nil
}

func (s *Service) fetchWater(ctx context.Context, coord Coordinate, today time.Time, offset int, daily []DailyConditions) (WaterMetrics, error) {
	if s.deps.Water == nil {
		return WaterMetrics{}, &FetchError{Source: SourceWater, Err: fmt.Errorf("%w: no water gauge configured", ErrUpstreamUnavailable)}
	}

	series, err := withRateLimitRetry(ctx, s.retry, s.sleep, func(ctx context.Context) ([]TimeSeries, error) {
		return s.deps.Water.FetchSeries(ctx, BoxAround(coord, waterSearchMargin), WaterParameterCodes, today)
	})
	if err != nil {
		return WaterMetrics{}, &FetchError{Source: SourceWater, Err: err}
	}

	return ForecastWater(WaterFromSeries(series), offset, daily), nil
}

func (s *Service) fetchSpeciesRange(ctx context.Context, req ConditionsRequest) (SpeciesTempRange, error) {
	if !req.HasSpecies() {
		return DefaultSpeciesRange, nil
	}
	if s.deps.Species == nil {
		return DefaultSpeciesRange, nil
	}

	species := strings.TrimSpace(req.Species)
	rng, err := withRateLimitRetry(ctx, s.retry, s.sleep, func(ctx context.Context) (SpeciesTempRange, error) {
		return s.deps.Species.SpeciesRange(ctx, species)
	})
	if err != nil {
		return DefaultSpeciesRange, &FetchError{Source: SourceSpecies, Err: err}
	}
	if !validRange(rng) {
		return DefaultSpeciesRange, &FetchError{
			Source: SourceSpecies,
			Err:    fmt.Errorf("%w: implausible range %.1f-%.1f for %q", ErrMalformedResponse, rng.Min, rng.Max, species),
		}
	}
	return rng, nil
}

func (s *Service) fetchRecent(ctx context.Context, coord Coordinate, today time.Time) (*RecentWeather, error) {
	if s.deps.History == nil {
		return nil, nil
	}
	from := today.AddDate(0, 0, -historyDays)
	r, err := withRateLimitRetry(ctx, s.retry, s.sleep, func(ctx context.Context) (RecentWeather, error) {
		return s.deps.History.RecentWeather(ctx, coord, from, today)
	})
	if err != nil {
		return nil, &FetchError{Source: SourceHistory, Err: err}
	}
	return &r, nil
}

// trend compares the target day with the day before it, or with the recent
// observed mean when the target is today.
func (s *Service) trend(daily []DailyConditions, offset int, day DailyConditions, recent *RecentWeather) TempTrend {
	if offset > 0 && offset-1 < len(daily) {
		return TrendFrom(day.MeanTempF(), daily[offset-1].MeanTempF())
	}
	if offset == 0 && recent != nil {
		return TrendFrom(day.MeanTempF(), recent.AvgTempF)
	}
	return TrendStable
}

func validRange(r SpeciesTempRange) bool {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return false
	}
	return r.Min <= r.Max && r.Min >= 32 && r.Max <= 100
}
