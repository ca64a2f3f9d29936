// Package summarizer turns a chat transcript into a short written summary
// using a hosted language model.
package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// Instruction is the fixed prompt sent ahead of every transcript.
const Instruction = "Give a short summary of the following conversation. Then give bullet points items to summarize each separate items with details."

// ErrNoSummary is returned when a model answered without usable content.
var ErrNoSummary = errors.New("model returned no summary")

// Provider summarizes transcripts. Summarize either returns non-empty text or
// an error; callers never have to inspect the text to detect failure.
type Provider interface {
	Summarize(ctx context.Context, transcript string) (string, error)
	Name() string
}

// Summary is the structured answer requested from models that support it.
type Summary struct {
	Summary   string   `json:"summary" jsonschema:"required,description=One short paragraph summarising the conversation"`
	KeyPoints []string `json:"key_points" jsonschema:"required,description=One bullet per separate topic with its details"`
}

// Markdown renders s as a paragraph followed by a bullet list.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(s.Summary))
	for _, p := range s.KeyPoints {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(p)
	}
	return b.String()
}

// parseSummary decodes a structured answer and renders it. Models that ignore
// the format and answer in prose are accepted as-is.
func parseSummary(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoSummary
	}
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var s Summary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return "", fmt.Errorf("failed to decode structured summary: %w", err)
	}
	out := s.Markdown()
	if out == "" {
		return "", ErrNoSummary
	}
	return out, nil
}

// summarySchema is the JSON schema for Summary, shaped for strict structured
// output: no references, no additional properties, every property required.
var summarySchema = generateSchema[Summary]()

func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	strictObjects(m)
	return m
}

func strictObjects(schema map[string]interface{}) {
	properties, _ := schema["properties"].(map[string]interface{})
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		required := make([]string, 0, len(properties))
		for name := range properties {
			required = append(required, name)
		}
		if len(required) > 0 {
			schema["required"] = required
		}
	}
	for _, prop := range properties {
		if propMap, ok := prop.(map[string]interface{}); ok {
			strictObjects(propMap)
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		strictObjects(items)
	}
}
