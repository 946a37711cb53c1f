package llm

import (
	"fmt"
	"strings"

	"github.com/actuallystonmai/course-recommender/internal/domain"
	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// Schema is a named JSON schema a completion response must satisfy.
type Schema struct {
	Name       string
	Definition map[string]any
	// Strict asks the provider to enforce the schema during generation.
	Strict bool

	compiled *gojsonschema.Schema
}

func NewSchema(name string, strict bool, def map[string]any) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{Name: name, Definition: def, Strict: strict, compiled: compiled}, nil
}

// MustSchema is NewSchema for package-level schema literals.
func MustSchema(name string, strict bool, def map[string]any) *Schema {
	s, err := NewSchema(name, strict, def)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks raw JSON against the schema.
func (s *Schema) Validate(raw []byte) error {
	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidCompletion, s.Name, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s: %s", domain.ErrInvalidCompletion, s.Name, strings.Join(msgs, "; "))
}

// Decode validates raw against schema and unmarshals it into T.
func Decode[T any](raw []byte, schema *Schema) (T, error) {
	var out T
	if err := schema.Validate(raw); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %v", domain.ErrInvalidCompletion, schema.Name, err)
	}
	return out, nil
}
