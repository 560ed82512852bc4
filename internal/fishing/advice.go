package fishing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/i474232898/fishing-forecast/internal/common"
)

// Fallback advice literals.
const (
	FallbackBait               = "Spinners or worms"
	FallbackStrategy           = "Fish near cover or deep pools, adjusted for recent weather."
	FallbackRod                = "Medium 7' rod, moderate action"
	FallbackLine               = "10 lb monofilament"
	FallbackNotes              = "Fallback due to API error."
	FallbackRecommendedSpecies = "Trout"
)

var refusalMarkers = []string{
	"i'm sorry",
	"i am sorry",
	"i can't help",
	"i cannot help",
	"i can't assist",
	"i cannot assist",
	"unable to comply",
}

// AdviceRequest is the structured payload sent to the advice generator.
type AdviceRequest struct {
	Coordinate      Coordinate       `json:"coordinate"`
	LocationName    string           `json:"locationName,omitempty"`
	Date            string           `json:"date"`
	TimeOfDay       TimeOfDay        `json:"timeOfDay"`
	Species         string           `json:"species,omitempty"`
	SpeciesSelected bool             `json:"speciesSelected"`
	FishingType     string           `json:"fishingType"`
	Forecast        *ForecastMetrics `json:"forecast"`
	Water           WaterMetrics     `json:"water"`
	SpeciesRange    SpeciesTempRange `json:"speciesRange"`
	Recent          *RecentWeather   `json:"recent,omitempty"`
	Score           int              `json:"score"`
}

// AdviceOutcome is either real advice or the fallback with the reason it was used.
type AdviceOutcome struct {
	Advice   AdviceResult
	Fallback bool
	Reason   ErrorKind
	Err      error
}

// FallbackAdvice is the fixed advice used whenever generation fails.
func FallbackAdvice(req ConditionsRequest) AdviceResult {
	a := AdviceResult{
		Bait:     FallbackBait,
		Strategy: FallbackStrategy,
		Tackle: Tackle{
			Rod:  FallbackRod,
			Line: FallbackLine,
		},
		AdditionalNotes: FallbackNotes,
	}
	if !req.HasSpecies() {
		a.RecommendedSpecies = FallbackRecommendedSpecies
	}
	return a
}

// BuildAdviceRequest copies the whole snapshot and the angler's selections into a request.
func BuildAdviceRequest(req ConditionsRequest, result ConditionsResult) AdviceRequest {
	ar := AdviceRequest{
		LocationName:    req.LocationName,
		Date:            result.Date,
		TimeOfDay:       req.TimeOfDay,
		SpeciesSelected: req.HasSpecies(),
		FishingType:     req.FishingType,
		Forecast:        result.Snapshot.Forecast,
		Water:           result.Snapshot.Water,
		SpeciesRange:    result.Snapshot.SpeciesRange,
		Recent:          result.Snapshot.Recent,
		Score:           result.Score,
	}
	if req.Coordinate != nil {
		ar.Coordinate = *req.Coordinate
	}
	if ar.SpeciesSelected {
		ar.Species = strings.TrimSpace(req.Species)
	}
	return ar
}

// Composer requests advice and guarantees a usable result.
type Composer struct {
	generator AdviceGenerator
	logger    *slog.Logger
}

func NewComposer(generator AdviceGenerator, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		generator: generator,
		logger:    logger,
	}
}

// Compose never fails: any generator problem produces the fallback advice.
func (c *Composer) Compose(ctx context.Context, req ConditionsRequest, result ConditionsResult) (out AdviceOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = c.fallback(req, result.RequestID, fmt.Errorf("%w: generator panic: %v", ErrUpstreamUnavailable, r))
		}
	}()

	if c.generator == nil {
		return c.fallback(req, result.RequestID, fmt.Errorf("%w: no advice generator configured", ErrUpstreamUnavailable))
	}

	raw, err := c.generator.Generate(ctx, BuildAdviceRequest(req, result))
	if err != nil {
		return c.fallback(req, result.RequestID, err)
	}

	advice, err := ParseAdvice(raw)
	if err != nil {
		return c.fallback(req, result.RequestID, err)
	}

	return AdviceOutcome{Advice: advice}
}

func (c *Composer) fallback(req ConditionsRequest, requestID string, err error) AdviceOutcome {
	kind := KindOf(err)
	c.logger.Warn("advice generation failed, using fallback",
		"request_id", requestID,
		"kind", kind,
		"error", err)
	return AdviceOutcome{
		Advice:   FallbackAdvice(req),
		Fallback: true,
		Reason:   kind,
		Err:      err,
	}
}

type adviceWire struct {
	Bait                    string          `json:"bait"`
	Strategy                string          `json:"strategy"`
	Tackle                  json.RawMessage `json:"tackle"`
	RecommendedSpecies      string          `json:"recommendedSpecies"`
	RecommendedSpeciesSnake string          `json:"recommended_species"`
	AdditionalNotes         string          `json:"additionalNotes"`
	AdditionalNotesSnake    string          `json:"additional_notes"`
}

// ParseAdvice decodes generator output. When the text is not a JSON object it
// falls back to the first balanced {...} substring. Missing tackle is repaired
// from the fallback tackle; missing bait or strategy is malformed.
func ParseAdvice(raw string) (AdviceResult, error) {
	var wire adviceWire
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &wire); err != nil {
		obj, ok := ExtractJSONObject(raw)
		if !ok {
			return AdviceResult{}, classifyUnparseable(raw)
		}
		wire = adviceWire{}
		if err := json.Unmarshal([]byte(obj), &wire); err != nil {
			return AdviceResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	advice := AdviceResult{
		Bait:               strings.TrimSpace(wire.Bait),
		Strategy:           strings.TrimSpace(wire.Strategy),
		Tackle:             parseTackle(wire.Tackle),
		RecommendedSpecies: strings.TrimSpace(firstNonEmpty(wire.RecommendedSpecies, wire.RecommendedSpeciesSnake)),
		AdditionalNotes:    strings.TrimSpace(firstNonEmpty(wire.AdditionalNotes, wire.AdditionalNotesSnake)),
	}
	if advice.Bait == "" || advice.Strategy == "" {
		return AdviceResult{}, fmt.Errorf("%w: advice is missing bait or strategy", ErrMalformedResponse)
	}
	return advice, nil
}

func classifyUnparseable(raw string) error {
	if common.HasAny(strings.ToLower(raw), refusalMarkers...) {
		return fmt.Errorf("%w: generator declined to answer", ErrContentPolicy)
	}
	return fmt.Errorf("%w: no JSON object found in advice", ErrMalformedResponse)
}

func parseTackle(raw json.RawMessage) Tackle {
	t := Tackle{Rod: FallbackRod, Line: FallbackLine}
	if len(raw) == 0 {
		return t
	}

	var obj Tackle
	if err := json.Unmarshal(raw, &obj); err == nil {
		if s := strings.TrimSpace(obj.Rod); s != "" {
			t.Rod = s
		}
		if s := strings.TrimSpace(obj.Line); s != "" {
			t.Line = s
		}
		return t
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
		t.Rod = strings.TrimSpace(s)
	}
	return t
}

// ExtractJSONObject returns the first balanced brace-delimited substring of s.
// Braces inside JSON strings are ignored.
func ExtractJSONObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := matchBrace(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
