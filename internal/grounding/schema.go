package grounding

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"ragcore/internal/ragtype"
)

// SchemaValidator validates generated answers against a per-route JSON
// Schema. Plain-text answers are auto-wrapped into the route's minimal
// object ({"answer": text}) before validation. It enforces structure only,
// never content safety.
type SchemaValidator struct {
	compiler *jsonschema.Compiler
	schemas  map[ragtype.RouteKind]*jsonschema.Schema
}

// NewSchemaValidator compiles one schema per route from the supplied raw
// JSON Schema documents.
func NewSchemaValidator(rawSchemas map[ragtype.RouteKind][]byte) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	v := &SchemaValidator{compiler: compiler, schemas: make(map[ragtype.RouteKind]*jsonschema.Schema, len(rawSchemas))}

	for route, raw := range rawSchemas {
		schema, err := compiler.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("grounding: compile schema for route %s: %w", route, err)
		}
		v.schemas[route] = schema
	}

	return v, nil
}

// Validate wraps a plain-text answer as {"answer": text} when needed, then
// validates it against the schema registered for route. A route with no
// registered schema is considered valid (schema validation is opt-in per
// route).
func (v *SchemaValidator) Validate(route ragtype.RouteKind, answer string) (valid bool, errs []string) {
	schema, ok := v.schemas[route]
	if !ok {
		return true, nil
	}

	payload, err := json.Marshal(map[string]string{"answer": answer})
	if err != nil {
		return false, []string{err.Error()}
	}

	result := schema.ValidateJSON(payload)
	if result.IsValid() {
		return true, nil
	}

	for path, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", path, e))
	}
	return false, errs
}
