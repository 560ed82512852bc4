package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

// OpenMeteoArchive implements fishing.WeatherHistory using the Open-Meteo archive API.
// It needs no API key.
type OpenMeteoArchive struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoArchive(client *http.Client) *OpenMeteoArchive {
	return &OpenMeteoArchive{
		name:    "openmeteo",
		baseURL: "https://archive-api.open-meteo.com/v1/archive",
		httpCfg: HTTPClientConfig{Client: client, UserAgent: userAgent},
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoArchive) Name() string {
	return p.name
}

func (p *OpenMeteoArchive) RecentWeather(ctx context.Context, coord fishing.Coordinate, from, to time.Time) (fishing.RecentWeather, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", coord.Latitude))
		values.Set("longitude", fmt.Sprintf("%f", coord.Longitude))
		values.Set("start_date", from.Format("2006-01-02"))
		values.Set("end_date", to.Format("2006-01-02"))
		values.Set("hourly", "temperature_2m,precipitation,wind_speed_10m")
		values.Set("temperature_unit", "fahrenheit")
		values.Set("precipitation_unit", "inch")
		values.Set("wind_speed_unit", "mph")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return fishing.RecentWeather{}, err
	}

	// The archive pads the most recent hours with nulls.
	var payload struct {
		Hourly struct {
			Temperature   []*float64 `json:"temperature_2m"`
			Precipitation []*float64 `json:"precipitation"`
			WindSpeed     []*float64 `json:"wind_speed_10m"`
		} `json:"hourly"`
	}
	if err := decodeJSON(resp, &payload); err != nil {
		return fishing.RecentWeather{}, err
	}

	avgTemp, n := mean(payload.Hourly.Temperature)
	if n == 0 {
		return fishing.RecentWeather{}, fmt.Errorf("%w: archive returned no temperatures", fishing.ErrMalformedResponse)
	}
	avgWind, _ := mean(payload.Hourly.WindSpeed)
	totalPrecip, _ := sum(payload.Hourly.Precipitation)

	return fishing.RecentWeather{
		AvgTempF:      avgTemp,
		TotalPrecipIn: totalPrecip,
		AvgWindMph:    avgWind,
	}, nil
}

func sum(values []*float64) (float64, int) {
	var total float64
	n := 0
	for _, v := range values {
		if v == nil {
			continue
		}
		total += *v
		n++
	}
	return total, n
}

func mean(values []*float64) (float64, int) {
	total, n := sum(values)
	if n == 0 {
		return 0, 0
	}
	return total / float64(n), n
}
