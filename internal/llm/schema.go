package llm

import (
	"encoding/json"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/spherical/source-ingest/internal/domain"
)

// visionPrompt is sent with every image. The model must answer with a JSON
// object holding a single "text" field.
const visionPrompt = `You are reading an image taken from study material.

- If the image contains text or formulas, transcribe them exactly.
- If it is a scientific or technical diagram, describe what it shows.
- If it is a table or chart, summarize the data it presents.
- Otherwise, or if the image holds nothing useful (logos, decoration, photos without content), return an empty string.

Respond only with a JSON object of the form {"text": "..."}.`

// visionPayload is the structured output expected from the model.
type visionPayload struct {
	Text string `json:"text" jsonschema:"Transcribed text, diagram description or table summary; empty when the image holds nothing of interest"`
}

var (
	responseSchema   = mustSchema()
	responseResolved = mustResolve(responseSchema)
)

func mustSchema() *jsonschema.Schema {
	s, err := jsonschema.For[visionPayload](nil)
	if err != nil {
		panic("llm: building vision response schema: " + err.Error())
	}
	return s
}

func mustResolve(s *jsonschema.Schema) *jsonschema.Resolved {
	r, err := s.Resolve(nil)
	if err != nil {
		panic("llm: resolving vision response schema: " + err.Error())
	}
	return r
}

// ResponseSchema returns the JSON schema sent to providers for structured output.
func ResponseSchema() *jsonschema.Schema {
	return responseSchema
}

// ParseVisionResponse validates raw model output against the response schema.
// {"text": ""} is a valid, empty result.
func ParseVisionResponse(raw string) (domain.ExtractedText, error) {
	body := stripCodeFence(strings.TrimSpace(raw))
	if body == "" {
		return domain.ExtractedText{}, domain.InvalidModelResponseError("empty model response", nil)
	}

	var instance any
	if err := json.Unmarshal([]byte(body), &instance); err != nil {
		return domain.ExtractedText{}, domain.InvalidModelResponseError("model response is not JSON", err)
	}

	if err := responseResolved.Validate(instance); err != nil {
		return domain.ExtractedText{}, domain.InvalidModelResponseError("model response does not match schema", err)
	}

	var payload visionPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return domain.ExtractedText{}, domain.InvalidModelResponseError("decode model response", err)
	}

	return domain.ExtractedText{Text: payload.Text}, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(s)
}
