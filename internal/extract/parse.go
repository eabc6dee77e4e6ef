package extract

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/schema"
)

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON object. A top-level array is left intact so it fails the shape check.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "[") {
		return text
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

var (
	shapeOnce   sync.Once
	shapeSchema *jsonschema.Schema
	shapeErr    error
)

// responseSchema describes an acceptable provider answer: a non-empty object
// whose catalog fields are scalars or null.
func responseSchema(s *schema.Schema) map[string]any {
	props := make(map[string]any)
	for _, f := range s.Fields() {
		props[f.Key] = map[string]any{"type": []string{"string", "number", "boolean", "null"}}
	}
	return map[string]any{
		"type":          "object",
		"minProperties": 1,
		"properties":    props,
	}
}

func compiledShape() (*jsonschema.Schema, error) {
	shapeOnce.Do(func() {
		b, err := json.Marshal(responseSchema(schema.Default()))
		if err != nil {
			shapeErr = eris.Wrap(err, "extract: marshal response schema")
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("response.json", bytes.NewReader(b)); err != nil {
			shapeErr = eris.Wrap(err, "extract: add response schema")
			return
		}
		shapeSchema, shapeErr = compiler.Compile("response.json")
		if shapeErr != nil {
			shapeErr = eris.Wrap(shapeErr, "extract: compile response schema")
		}
	})
	return shapeSchema, shapeErr
}

// validateShape checks a decoded provider answer against the response schema.
func validateShape(v any) error {
	sch, err := compiledShape()
	if err != nil {
		return err
	}
	if err := sch.Validate(v); err != nil {
		return eris.Wrap(err, "extract: response does not match schema")
	}
	return nil
}

// parseFields decodes a provider's text answer into a RawFieldMap.
func parseFields(p model.ProviderID, text string) (model.RawFieldMap, error) {
	if strings.TrimSpace(text) == "" {
		return nil, failure(p, ReasonMissingContent, nil, "resposta vazia")
	}

	var v any
	if err := json.Unmarshal([]byte(cleanJSON(text)), &v); err != nil {
		return nil, failure(p, ReasonMalformed, eris.Wrap(err, "extract: decode provider json"), "Resposta inválida da API "+p.Label())
	}
	return toRawFieldMap(p, v)
}

func toRawFieldMap(p model.ProviderID, v any) (model.RawFieldMap, error) {
	if err := validateShape(v); err != nil {
		return nil, failure(p, ReasonMalformed, err, "Resposta inválida da API "+p.Label())
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, failure(p, ReasonMalformed, nil, "Resposta inválida da API "+p.Label())
	}
	return model.RawFieldMap(obj), nil
}
