package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

// ErrNoGeocodeResult is returned when the query matches no place.
var ErrNoGeocodeResult = errors.New("no geocoding results found")

// GoogleGeocoder resolves "City, State" queries with the Google Geocoding API.
type GoogleGeocoder struct {
	lookup func(geocoder.Address) (geocoder.Location, error)
}

// NewGoogleGeocoder configures the package-level API key of kelvins/geocoder.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{lookup: geocoder.Geocoding}
}

// ParseCityState splits "City, State" into its parts.
func ParseCityState(query string) (city, state string, err error) {
	parts := strings.Split(strings.TrimSpace(query), ",")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid format: expected 'City, State' (e.g., 'Mobile, AL')")
	}
	city = strings.TrimSpace(parts[0])
	state = strings.TrimSpace(parts[1])
	if city == "" || state == "" {
		return "", "", fmt.Errorf("city and state cannot be empty")
	}
	return city, state, nil
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, query string) (fishing.Coordinate, error) {
	city, state, err := ParseCityState(query)
	if err != nil {
		return fishing.Coordinate{}, err
	}
	if err := ctx.Err(); err != nil {
		return fishing.Coordinate{}, err
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := g.lookup(geocoder.Address{City: city, State: state})
		done <- result{loc, err}
	}()

	select {
	case <-ctx.Done():
		return fishing.Coordinate{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return fishing.Coordinate{}, fmt.Errorf("%w: %q: %v", ErrNoGeocodeResult, query, r.err)
		}
		coord := fishing.Coordinate{Latitude: r.loc.Latitude, Longitude: r.loc.Longitude}
		if !coord.Valid() || (coord.Latitude == 0 && coord.Longitude == 0) {
			return fishing.Coordinate{}, fmt.Errorf("%w: %q", ErrNoGeocodeResult, query)
		}
		return coord, nil
	}
}
