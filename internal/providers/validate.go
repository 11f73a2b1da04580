package providers

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Classification payloads are validated against these schemas before a
// backend result is returned. All backends run the same validation, so a
// malformed response looks identical no matter which backend produced it.
const gameDetectionSchemaJSON = `{
	"type": "object",
	"required": ["game_type", "edition", "book_type", "confidence"],
	"properties": {
		"game_type": {"type": "string", "minLength": 1},
		"edition": {"type": "string"},
		"book_type": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"reasoning": {"type": "string"}
	}
}`

const categoryHintSchemaJSON = `{
	"type": "object",
	"required": ["category", "confidence"],
	"properties": {
		"category": {"type": "string", "minLength": 1},
		"subcategory": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"reasoning": {"type": "string"}
	}
}`

var (
	gameDetectionSchema = jsonschema.MustCompileString("game_detection.json", gameDetectionSchemaJSON)
	categoryHintSchema  = jsonschema.MustCompileString("category_hint.json", categoryHintSchemaJSON)
)

// schemaFor returns the validation schema for a prompt kind.
func schemaFor(kind PromptKind) *jsonschema.Schema {
	if kind == PromptCategoryHint {
		return categoryHintSchema
	}
	return gameDetectionSchema
}

// ResponseSchemaJSON returns the raw JSON schema backends send as their
// structured-output response format for the given kind.
func ResponseSchemaJSON(kind PromptKind) json.RawMessage {
	if kind == PromptCategoryHint {
		return json.RawMessage(categoryHintSchemaJSON)
	}
	return json.RawMessage(gameDetectionSchemaJSON)
}

// ParseClassification validates raw backend output against the schema for
// kind and decodes it. Invalid JSON or schema violations yield
// ErrMalformedResponse.
func ParseClassification(kind PromptKind, raw []byte) (*Classification, error) {
	var inst any
	if err := json.Unmarshal(raw, &inst); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformedResponse, err)
	}
	if err := schemaFor(kind).Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var c Classification
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if kind == PromptCategoryHint {
		// Category payloads carry subcategory under its own key; fold it
		// into the shared struct as "category/subcategory".
		var sub struct {
			Subcategory string `json:"subcategory"`
		}
		if err := json.Unmarshal(raw, &sub); err == nil && sub.Subcategory != "" && c.Category != "" {
			c.Category = c.Category + "/" + sub.Subcategory
		}
	}
	return &c, nil
}

// extractJSON pulls the first top-level JSON object out of a model reply
// that may wrap it in prose or markdown fences.
func extractJSON(content string) ([]byte, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(content); i++ {
		ch := content[i]
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
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return []byte(content[start : i+1]), nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformedResponse)
}
