package fishing

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies failures for diagnostics and HTTP mapping.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindDateOutOfRange      ErrorKind = "date_out_of_range"
	KindMissingCoordinates  ErrorKind = "missing_coordinates"
	KindRateLimited         ErrorKind = "rate_limited"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindContentPolicy       ErrorKind = "content_policy"
)

// Source names the collaborator a failure came from.
type Source string

const (
	SourceWeather Source = "weather"
	SourceWater   Source = "water"
	SourceSpecies Source = "species"
	SourceHistory Source = "history"
	SourceAdvice  Source = "advice"
)

var (
	ErrDateOutOfRange      = errors.New("date out of range")
	ErrMissingCoordinates  = errors.New("missing coordinates")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMalformedResponse   = errors.New("malformed response")
	ErrContentPolicy       = errors.New("content policy refusal")
)

// DateOutOfRangeError is returned when the target date falls outside today..today+MaxDays.
type DateOutOfRangeError struct {
	Target  time.Time
	Today   time.Time
	MaxDays int
}

func (e *DateOutOfRangeError) Error() string {
	return fmt.Sprintf("date %s must be within %d days from today (%s)",
		e.Target.Format(dateLayout), e.MaxDays, e.Today.Format(dateLayout))
}

func (e *DateOutOfRangeError) Unwrap() error {
	return ErrDateOutOfRange
}

// FetchError ties a collaborator failure to its source.
type FetchError struct {
	Source Source
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf maps an error onto an ErrorKind. Unknown errors count as upstream unavailability.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrDateOutOfRange):
		return KindDateOutOfRange
	case errors.Is(err, ErrMissingCoordinates):
		return KindMissingCoordinates
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrContentPolicy):
		return KindContentPolicy
	default:
		return KindUpstreamUnavailable
	}
}

// IsFatal reports whether err aborts a whole request.
func IsFatal(err error) bool {
	k := KindOf(err)
	return k == KindDateOutOfRange || k == KindMissingCoordinates
}

func diagnosticFor(source Source, err error) Diagnostic {
	return Diagnostic{
		Source:  source,
		Kind:    KindOf(err),
		Message: err.Error(),
	}
}
