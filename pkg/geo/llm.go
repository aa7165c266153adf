package geo

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/llms"
)

const extractionPrompt = `You extract delivery addresses from chat messages written in English, Hindi or Hinglish.
Return ONLY a JSON object:
{"address": "<the address text, or empty>", "landmark": "<landmark if any>", "confidence": <0.0-1.0>, "needs_clarification": <true|false>, "clarification_question": "<question if clarification needed>"}
If the message contains no address at all, set confidence to 0 and needs_clarification to true.`

type llmExtraction struct {
	Address               string  `json:"address"`
	Landmark              string  `json:"landmark"`
	Confidence            float64 `json:"confidence"`
	NeedsClarification    bool    `json:"needs_clarification"`
	ClarificationQuestion string  `json:"clarification_question"`
}

// fromLLM prompts the LLM for a structured address and re-geocodes the
// extracted text to obtain coordinates.
func (e *Extractor) fromLLM(ctx context.Context, input string) Result {
	resp, err := e.llm.Generate(ctx, &llms.Request{
		System:      extractionPrompt,
		Messages:    []llms.Message{{Role: "user", Content: input}},
		Temperature: 0,
		MaxTokens:   300,
		JSONMode:    true,
	})
	if err != nil {
		e.log.Warn("llm address extraction failed", "error", err)
		return Result{Err: err}
	}

	var extraction llmExtraction
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text)), &extraction); err != nil {
		e.log.Warn("llm extraction returned invalid JSON", "error", err)
		return Result{Err: err}
	}

	if extraction.NeedsClarification && extraction.ClarificationQuestion != "" {
		return Result{NeedsMoreInfo: true, ClarificationPrompt: extraction.ClarificationQuestion}
	}
	if extraction.Confidence < 0.5 || extraction.Address == "" {
		return Result{}
	}

	if e.geocoder == nil {
		return Result{}
	}
	geo, err := e.geocoder.Geocode(ctx, extraction.Address)
	if err != nil {
		e.log.Warn("geocoding llm-extracted address failed", "address", extraction.Address, "error", err)
		return Result{Err: err}
	}
	if err := ValidateCoordinates(geo.Latitude, geo.Longitude); err != nil {
		return Result{Err: err}
	}

	lat, lng := geo.Latitude, geo.Longitude
	address := geo.FormattedAddress
	if address == "" {
		address = extraction.Address
	}
	return Result{
		Success: true,
		Address: &ExtractedAddress{
			Address:    address,
			Latitude:   &lat,
			Longitude:  &lng,
			Source:     SourceLLMExtracted,
			Confidence: extraction.Confidence,
			Metadata:   Metadata{Landmark: extraction.Landmark, RawInput: input},
		},
	}
}

// cleanJSON strips markdown code fences some models wrap around JSON.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
