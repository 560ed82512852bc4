package fishing

import (
	"math"
	"strings"
	"time"
)

// TimeOfDay is the band of the day the angler plans to fish.
type TimeOfDay string

const (
	Morning   TimeOfDay = "Morning"
	Afternoon TimeOfDay = "Afternoon"
	Evening   TimeOfDay = "Evening"
	Night     TimeOfDay = "Night"
)

// TempTrend describes the direction air temperature is moving toward the target day.
type TempTrend string

const (
	TrendWarming TempTrend = "Warming"
	TrendCooling TempTrend = "Cooling"
	TrendStable  TempTrend = "Stable"
)

// Clarity is a coarse water clarity category.
type Clarity string

const (
	ClarityClear         Clarity = "Clear"
	ClaritySlightlyMurky Clarity = "Slightly Murky"
	ClarityMurky         Clarity = "Murky"
)

// Species values that mean "no particular species".
const (
	SpeciesNone  = "None"
	SpeciesOther = "Other"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both components are finite and in range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// ConditionsRequest is one user submission. Only the calendar date of TargetDate is used.
type ConditionsRequest struct {
	Coordinate  *Coordinate `json:"coordinate"`
	TargetDate  time.Time   `json:"targetDate"`
	TimeOfDay   TimeOfDay   `json:"timeOfDay"`
	Species     string      `json:"species"`
	FishingType string      `json:"fishingType"`

	// LocationName is a display label such as "Mobile, AL"; optional.
	LocationName string `json:"locationName,omitempty"`
}

// HasSpecies reports whether the angler picked a concrete species.
func (r ConditionsRequest) HasSpecies() bool {
	s := strings.TrimSpace(r.Species)
	return s != "" && !strings.EqualFold(s, SpeciesNone) && !strings.EqualFold(s, SpeciesOther)
}

// ForecastMetrics is the normalized weather view for the requested day and time of day.
type ForecastMetrics struct {
	LowTempF          float64   `json:"lowTempF"`
	HighTempF         float64   `json:"highTempF"`
	HourlyTempF       *float64  `json:"hourlyTempF,omitempty"`
	TotalPrecipIn     float64   `json:"totalPrecipIn"`
	PrecipProbability float64   `json:"precipProbability"`
	AvgWindMph        float64   `json:"avgWindMph"`
	WindDeg           float64   `json:"windDeg"`
	PressureHpa       float64   `json:"pressureHpa"`
	CloudCover        float64   `json:"cloudCover"`
	Humidity          float64   `json:"humidity"`
	MoonPhase         MoonPhase `json:"moonPhase"`
	TempTrend         TempTrend `json:"tempTrend"`
}

// WaterMetrics holds observed or forecast water conditions. Nil fields are unknown.
type WaterMetrics struct {
	WaterTempF   *float64 `json:"waterTempF"`
	GageHeightFt *float64 `json:"gageHeightFt"`
	Clarity      *Clarity `json:"clarity"`
	FlowRateCfs  *float64 `json:"flowRateCfs"`
	IsForecasted bool     `json:"isForecasted"`
}

// Empty reports whether no water value is known.
func (w WaterMetrics) Empty() bool {
	return w.WaterTempF == nil && w.GageHeightFt == nil && w.Clarity == nil && w.FlowRateCfs == nil
}

// SpeciesTempRange is the optimal water temperature band for a species, in Fahrenheit.
type SpeciesTempRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultSpeciesRange applies when the species is unset or its range is unknown.
var DefaultSpeciesRange = SpeciesTempRange{Min: 60, Max: 80}

// RecentWeather summarizes the observed weather of the last few days.
type RecentWeather struct {
	AvgTempF      float64 `json:"avgTempF"`
	TotalPrecipIn float64 `json:"totalPrecipIn"`
	AvgWindMph    float64 `json:"avgWindMph"`
}

// ConditionsSnapshot is the merged environmental record for one request.
// Forecast is nil when the weather collaborator could not be reached.
type ConditionsSnapshot struct {
	Forecast     *ForecastMetrics `json:"forecast"`
	Water        WaterMetrics     `json:"water"`
	SpeciesRange SpeciesTempRange `json:"speciesRange"`
	Recent       *RecentWeather   `json:"recent,omitempty"`
}

// Tackle is the recommended rod and line.
type Tackle struct {
	Rod  string `json:"rod"`
	Line string `json:"line"`
}

// AdviceResult is the structured advice shown to the angler.
type AdviceResult struct {
	Bait               string `json:"bait"`
	Strategy           string `json:"strategy"`
	Tackle             Tackle `json:"tackle"`
	RecommendedSpecies string `json:"recommendedSpecies,omitempty"`
	AdditionalNotes    string `json:"additionalNotes,omitempty"`
}

// Diagnostic records a recovered partial failure.
type Diagnostic struct {
	Source  Source    `json:"source"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// ConditionsResult is the output of GetConditions.
type ConditionsResult struct {
	RequestID   string             `json:"requestId"`
	Date        string             `json:"date"`
	TimeOfDay   TimeOfDay          `json:"timeOfDay"`
	Snapshot    ConditionsSnapshot `json:"snapshot"`
	Score       int                `json:"score"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`
}

// Degraded reports whether any sub-fetch failed.
func (r ConditionsResult) Degraded() bool {
	return len(r.Diagnostics) > 0
}

// Recommendation is the final result handed to the caller: conditions, score and advice.
type Recommendation struct {
	ConditionsResult
	Advice         AdviceResult `json:"advice"`
	Fallback       bool         `json:"fallback"`
	FallbackReason ErrorKind    `json:"fallbackReason,omitempty"`
}
