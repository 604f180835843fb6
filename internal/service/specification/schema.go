package specification

import (
	"architect/internal/apperr"
	"architect/internal/repository/db"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// SchemaName is the name sent with schema-constrained generation requests
const SchemaName = "app_specification"

// Output is a parsed synthesis reply
type Output struct {
	AppName     string      `json:"appName"`
	Document    db.Document `json:"document"`
	BuildPrompt string      `json:"buildPrompt"`
}

// The shapes below exist only to reflect the schema. Only the overview is
// closed; the rest of the document is free-form.
type outputShape struct {
	AppName     string        `json:"appName" jsonschema:"description=Name of the app"`
	Document    documentShape `json:"document"`
	BuildPrompt string        `json:"buildPrompt" jsonschema:"description=Markdown prompt for an AI app builder"`
}

type documentShape struct {
	Overview db.Overview `json:"overview"`
}

func (documentShape) JSONSchemaExtend(s *jsonschema.Schema) {
	s.AdditionalProperties = jsonschema.TrueSchema
}

var (
	schemaOnce     sync.Once
	schemaJSON     json.RawMessage
	schemaCompiled *gojsonschema.Schema
	schemaErr      error
)

// OutputSchema returns the JSON Schema every synthesis reply must satisfy
func OutputSchema() (json.RawMessage, error) {
	loadSchema()
	return schemaJSON, schemaErr
}

func loadSchema() {
	schemaOnce.Do(func() {
		reflector := &jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
			ExpandedStruct:            true,
			Anonymous:                 true,
		}
		schema := reflector.Reflect(&outputShape{})
		schema.Version = ""

		data, err := json.Marshal(schema)
		if err != nil {
			schemaErr = fmt.Errorf("marshal output schema: %w", err)
			return
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			schemaErr = fmt.Errorf("compile output schema: %w", err)
			return
		}
		schemaJSON = data
		schemaCompiled = compiled
	})
}

// ParseOutput validates a raw reply against the output schema and decodes it.
// A surrounding markdown code fence is tolerated.
func ParseOutput(reply string) (*Output, error) {
	loadSchema()
	if schemaErr != nil {
		return nil, schemaErr
	}

	body := stripCodeFence(reply)
	if body == "" {
		return nil, fmt.Errorf("empty reply: %w", apperr.ErrInvalidGenerationOutput)
	}

	result, err := schemaCompiled.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return nil, fmt.Errorf("reply is not JSON: %v: %w", err, apperr.ErrInvalidGenerationOutput)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("reply does not match schema: %s: %w", strings.Join(problems, "; "), apperr.ErrInvalidGenerationOutput)
	}

	var out Output
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("decode reply: %v: %w", err, apperr.ErrInvalidGenerationOutput)
	}
	return &out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
