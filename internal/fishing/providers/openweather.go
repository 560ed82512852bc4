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

// OpenWeatherProvider implements fishing.WeatherProvider using the One Call 3.0 API.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/3.0/onecall",
		httpCfg: HTTPClientConfig{Client: client, UserAgent: userAgent},
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmDaily struct {
	Dt   int64 `json:"dt"`
	Temp struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temp"`
	Rain      *float64 `json:"rain"`
	WindSpeed float64  `json:"wind_speed"`
	WindDeg   float64  `json:"wind_deg"`
	Pressure  float64  `json:"pressure"`
	Clouds    float64  `json:"clouds"`
	Humidity  float64  `json:"humidity"`
	MoonPhase *float64 `json:"moon_phase"`
	Pop       float64  `json:"pop"`
}

type owmHourly struct {
	Dt   int64   `json:"dt"`
	Temp float64 `json:"temp"`
}

type owmOneCall struct {
	Daily  []owmDaily  `json:"daily"`
	Hourly []owmHourly `json:"hourly"`
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, coord fishing.Coordinate) (fishing.WeatherPayload, error) {
	if p.apiKey == "" {
		return fishing.WeatherPayload{}, fmt.Errorf("%w: openweather api key is not configured", fishing.ErrUpstreamUnavailable)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", coord.Latitude))
		values.Set("lon", fmt.Sprintf("%f", coord.Longitude))
		values.Set("exclude", "minutely,alerts")
		values.Set("units", "imperial")
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return fishing.WeatherPayload{}, err
	}

	var payload owmOneCall
	if err := decodeJSON(resp, &payload); err != nil {
		return fishing.WeatherPayload{}, err
	}

	out := fishing.WeatherPayload{
		Daily:  make([]fishing.DailyForecast, 0, len(payload.Daily)),
		Hourly: make([]fishing.HourlyForecast, 0, len(payload.Hourly)),
	}
	for _, d := range payload.Daily {
		out.Daily = append(out.Daily, fishing.DailyForecast{
			Time:         time.Unix(d.Dt, 0).UTC(),
			TempMinF:     d.Temp.Min,
			TempMaxF:     d.Temp.Max,
			RainMm:       d.Rain,
			WindSpeedMph: d.WindSpeed,
			WindDeg:      d.WindDeg,
			PressureHpa:  d.Pressure,
			Clouds:       d.Clouds,
			Humidity:     d.Humidity,
			MoonPhase:    d.MoonPhase,
			Pop:          d.Pop,
		})
	}
	for _, h := range payload.Hourly {
		out.Hourly = append(out.Hourly, fishing.HourlyForecast{
			Time:  time.Unix(h.Dt, 0).UTC(),
			TempF: h.Temp,
		})
	}

	return out, nil
}
