package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// planSchemaJSON is the JSON Schema a structured Backend.GeneratePlan
// response must satisfy to be accepted as a Plan, rather than triggering the
// invalid_plan fallback to the heuristic planner (spec §4.3, §7).
const planSchemaJSON = `{
  "type": "object",
  "required": ["tasks"],
  "properties": {
    "tasks": {
      "type": "array",
      "minItems": 1,
      "maxItems": 8,
      "items": {
        "type": "object",
        "required": ["id", "description", "capabilities"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "description": {"type": "string", "minLength": 1},
          "capabilities": {
            "type": "array",
            "items": {"type": "string", "minLength": 1}
          },
          "dependencies": {
            "type": "array",
            "items": {"type": "string"}
          }
        }
      }
    }
  }
}`

// schemaValidator compiles and re-uses the structured-plan JSON Schema.
// Grounded on the teacher's StructuredValidator
// (internal/engine/structured.go): compile once via jsonschema.UnmarshalJSON
// for correct number handling, validate many times.
type schemaValidator struct {
	schema *jsonschema.Schema
}

func newSchemaValidator() (*schemaValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(planSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("planner: unmarshal plan schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("plan-schema.json", doc); err != nil {
		return nil, fmt.Errorf("planner: add plan schema resource: %w", err)
	}
	schema, err := c.Compile("plan-schema.json")
	if err != nil {
		return nil, fmt.Errorf("planner: compile plan schema: %w", err)
	}
	return &schemaValidator{schema: schema}, nil
}

// validate checks raw (a JSON document) against the structured-plan schema.
func (v *schemaValidator) validate(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return fmt.Errorf("%w: not valid JSON: %v", ErrInvalidPlan, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	return nil
}

// structuredPlan is the decoded shape of a schema-valid backend response.
type structuredPlan struct {
	Tasks []structuredTask `json:"tasks"`
}

type structuredTask struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Dependencies []string `json:"dependencies"`
}

// decodeStructuredPlan validates raw against the schema and decodes it.
func (v *schemaValidator) decodeStructuredPlan(raw []byte) (structuredPlan, error) {
	if err := v.validate(raw); err != nil {
		return structuredPlan{}, err
	}
	var sp structuredPlan
	if err := json.Unmarshal(raw, &sp); err != nil {
		return structuredPlan{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	return sp, nil
}
