package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

const (
	adviceInstruction = "You are an expert fishing advisor. The user message is a JSON document " +
		"describing the forecast, water conditions, the optimal water temperature range of the " +
		"target species and the angler's selections. Use U.S. units. Do not name a specific " +
		"fishing spot. If speciesSelected is false, suggest one species to target. Reply with a " +
		"single JSON object with keys bait, strategy, tackle {rod, line}, recommendedSpecies " +
		"(only when no species was selected) and additionalNotes, and nothing else."

	speciesRangeInstruction = "Reply with a single JSON object " +
		`{"species": string, "optimal_temp_range_f": {"min": number, "max": number}} ` +
		"giving the optimal water temperature range in Fahrenheit for recreational fishing of the " +
		"named species in the United States or Canada, and nothing else."

	speciesListInstruction = "Reply with a single JSON object " +
		`{"species": [string]} ` +
		"listing 5 to 10 popular fish species (common names only) that anglers target near the " +
		"given location in the United States or Canada, and nothing else."
)

// OpenAIClient talks to the chat completions API. It serves as the advice
// generator and as the species range and species list collaborators.
type OpenAIClient struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenAIClient(client *http.Client, apiKey, model string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		name:    "openai",
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com/v1/chat/completions",
		httpCfg: HTTPClientConfig{Client: client, UserAgent: userAgent},
		circuit: newCircuitBreaker("openai"),
	}
}

func (c *OpenAIClient) Name() string {
	return c.name
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string  `json:"content"`
			Refusal *string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate implements fishing.AdviceGenerator.
func (c *OpenAIClient) Generate(ctx context.Context, req fishing.AdviceRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding advice request: %w", err)
	}
	return c.complete(ctx, adviceInstruction, string(body), 0.3)
}

// SpeciesRange implements fishing.SpeciesRanger.
func (c *OpenAIClient) SpeciesRange(ctx context.Context, species string) (fishing.SpeciesTempRange, error) {
	content, err := c.complete(ctx, speciesRangeInstruction, species, 0.2)
	if err != nil {
		return fishing.SpeciesTempRange{}, err
	}

	var parsed struct {
		Range *struct {
			Min *float64 `json:"min"`
			Max *float64 `json:"max"`
		} `json:"optimal_temp_range_f"`
	}
	if err := unmarshalLoose(content, &parsed); err != nil {
		return fishing.SpeciesTempRange{}, err
	}
	if parsed.Range == nil || parsed.Range.Min == nil || parsed.Range.Max == nil {
		return fishing.SpeciesTempRange{}, fmt.Errorf("%w: missing optimal_temp_range_f", fishing.ErrMalformedResponse)
	}

	return fishing.SpeciesTempRange{Min: *parsed.Range.Min, Max: *parsed.Range.Max}, nil
}

// SpeciesList implements fishing.SpeciesLister.
func (c *OpenAIClient) SpeciesList(ctx context.Context, cityState string) ([]string, error) {
	content, err := c.complete(ctx, speciesListInstruction, cityState, 0.2)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Species []string `json:"species"`
	}
	if err := unmarshalLoose(content, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Species) == 0 {
		return nil, fmt.Errorf("%w: empty species list", fishing.ErrMalformedResponse)
	}
	return parsed.Species, nil
}

func (c *OpenAIClient) complete(ctx context.Context, instruction, user string, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: openai api key is not configured", fishing.ErrUpstreamUnavailable)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.baseURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return req, nil
	}

	resp, err := doRequest(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", fishing.ErrMalformedResponse)
	}

	choice := out.Choices[0]
	if choice.FinishReason == "content_filter" || (choice.Message.Refusal != nil && *choice.Message.Refusal != "") {
		return "", fmt.Errorf("%w: completion refused", fishing.ErrContentPolicy)
	}
	return choice.Message.Content, nil
}

// unmarshalLoose decodes content directly or, failing that, its first balanced JSON object.
func unmarshalLoose(content string, out interface{}) error {
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), out); err == nil {
		return nil
	}
	obj, ok := fishing.ExtractJSONObject(content)
	if !ok {
		return fmt.Errorf("%w: no JSON object in completion", fishing.ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("%w: %v", fishing.ErrMalformedResponse, err)
	}
	return nil
}
