package fishing

import (
	"context"
	"time"
)

// DailyForecast is one raw daily bucket as reported by the weather provider.
// Temperatures are Fahrenheit, wind is mph, rain is millimetres.
type DailyForecast struct {
	Time         time.Time
	TempMinF     float64
	TempMaxF     float64
	RainMm       *float64
	WindSpeedMph float64
	WindDeg      float64
	PressureHpa  float64
	Clouds       float64
	Humidity     float64
	MoonPhase    *float64
	Pop          float64
}

// HourlyForecast is one raw hourly bucket.
type HourlyForecast struct {
	Time  time.Time `json:"time"`
	TempF float64   `json:"tempF"`
}

// WeatherPayload is the raw forecast series for a coordinate.
type WeatherPayload struct {
	Daily  []DailyForecast
	Hourly []HourlyForecast
}

// WeatherProvider fetches the daily/hourly forecast covering today through seven days ahead.
type WeatherProvider interface {
	Name() string
	FetchForecast(ctx context.Context, coord Coordinate) (WeatherPayload, error)
}

// USGS parameter codes requested from the water gauge.
const (
	ParamWaterTemp  = "00010" // degrees Celsius
	ParamGageHeight = "00065" // feet
	ParamDischarge  = "00060" // cubic feet per second
	ParamTurbidity  = "63680" // formazin nephelometric units
)

// WaterParameterCodes is the default set of codes requested per station search.
var WaterParameterCodes = []string{ParamWaterTemp, ParamGageHeight, ParamDischarge, ParamTurbidity}

// BoundingBox is a west/south/east/north box in degrees.
type BoundingBox struct {
	West  float64
	South float64
	East  float64
	North float64
}

// BoxAround returns a box extending margin degrees around c.
func BoxAround(c Coordinate, margin float64) BoundingBox {
	return BoundingBox{
		West:  c.Longitude - margin,
		South: c.Latitude - margin,
		East:  c.Longitude + margin,
		North: c.Latitude + margin,
	}
}

// TimeSeries is one parameter's values from one station, oldest first.
type TimeSeries struct {
	SiteCode      string
	ParameterCode string
	Values        []float64
}

// WaterGauge fetches station time series inside a bounding box for one date.
// An empty result means no station is nearby and is not an error.
type WaterGauge interface {
	Name() string
	FetchSeries(ctx context.Context, box BoundingBox, codes []string, date time.Time) ([]TimeSeries, error)
}

// SpeciesRanger returns the optimal water temperature range for a species.
type SpeciesRanger interface {
	SpeciesRange(ctx context.Context, species string) (SpeciesTempRange, error)
}

// SpeciesLister returns species commonly targeted near a "City, ST" location.
type SpeciesLister interface {
	SpeciesList(ctx context.Context, cityState string) ([]string, error)
}

// AdviceGenerator turns a structured advice request into free text expected to hold one JSON object.
type AdviceGenerator interface {
	Generate(ctx context.Context, req AdviceRequest) (string, error)
}

// WeatherHistory summarizes observed weather between two dates.
type WeatherHistory interface {
	RecentWeather(ctx context.Context, coord Coordinate, from, to time.Time) (RecentWeather, error)
}

// Geocoder resolves free text such as "Mobile, AL" into a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Coordinate, error)
}

// Cache stores normalized weather series keyed by coordinate and date.
// Writers overwrite; last writer wins.
type Cache interface {
	Get(ctx context.Context, key string) (WeatherSeries, bool, error)
	Set(ctx context.Context, key string, series WeatherSeries) error
	Prune(ctx context.Context) int
}
