package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

// USGSGauge implements fishing.WaterGauge against the NWIS daily values service.
type USGSGauge struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewUSGSGauge(client *http.Client) *USGSGauge {
	return &USGSGauge{
		name:    "usgs-nwis",
		baseURL: "https://waterservices.usgs.gov/nwis/dv/",
		httpCfg: HTTPClientConfig{Client: client, UserAgent: userAgent, NotFoundIsEmpty: true},
		circuit: newCircuitBreaker("usgs"),
	}
}

func (g *USGSGauge) Name() string {
	return g.name
}

type nwisResponse struct {
	Value struct {
		TimeSeries []struct {
			SourceInfo struct {
				SiteCode []struct {
					Value string `json:"value"`
				} `json:"siteCode"`
			} `json:"sourceInfo"`
			Variable struct {
				VariableCode []struct {
					Value string `json:"value"`
				} `json:"variableCode"`
			} `json:"variable"`
			Values []struct {
				Value []struct {
					Value string `json:"value"`
				} `json:"value"`
			} `json:"values"`
		} `json:"timeSeries"`
	} `json:"value"`
}

func (g *USGSGauge) FetchSeries(ctx context.Context, box fishing.BoundingBox, codes []string, date time.Time) ([]fishing.TimeSeries, error) {
	day := date.Format("2006-01-02")

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("format", "json")
		values.Set("bBox", fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", box.West, box.South, box.East, box.North))
		values.Set("parameterCd", strings.Join(codes, ","))
		values.Set("startDT", day)
		values.Set("endDT", day)

		u := fmt.Sprintf("%s?%s", g.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, g.httpCfg, g.circuit, buildRequest)
	if errors.Is(err, errNotFound) {
		// NWIS answers 404 when no site in the box matches.
		return []fishing.TimeSeries{}, nil
	}
	if err != nil {
		return nil, err
	}

	var payload nwisResponse
	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}

	out := make([]fishing.TimeSeries, 0, len(payload.Value.TimeSeries))
	for _, ts := range payload.Value.TimeSeries {
		if len(ts.Variable.VariableCode) == 0 {
			continue
		}
		series := fishing.TimeSeries{
			ParameterCode: ts.Variable.VariableCode[0].Value,
		}
		if len(ts.SourceInfo.SiteCode) > 0 {
			series.SiteCode = ts.SourceInfo.SiteCode[0].Value
		}
		for _, block := range ts.Values {
			for _, v := range block.Value {
				f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
				if err != nil {
					// Skip qualifiers such as "Ice" or "Eqp".
					continue
				}
				series.Values = append(series.Values, f)
			}
		}
		out = append(out, series)
	}

	return out, nil
}
