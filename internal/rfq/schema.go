package rfq

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hyperjump/rfqrocket/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const partialSchemaURL = "partial-record.json"

// partialRecordSchema returns the JSON Schema of a partial record: every
// section optional, typed object or array, unknown keys allowed.
func partialRecordSchema() map[string]any {
	props := make(map[string]any, len(models.Fields))
	for _, f := range models.Fields {
		props[string(f)] = map[string]any{"type": models.Schema[f].String()}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

func compilePartialSchema() (*jsonschema.Schema, error) {
	b, err := json.Marshal(partialRecordSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(partialSchemaURL, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(partialSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
