package gemini

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/generation"
)

//go:embed schemas/*.json
var embeddedSchemas embed.FS

// schemaSet maps each artifact kind to its compiled JSON schema.
type schemaSet map[domain.ArtifactKind]*gojsonschema.Schema

func loadSchemas() (schemaSet, error) {
	set := make(schemaSet, len(domain.AllArtifactKinds))
	for _, kind := range domain.AllArtifactKinds {
		raw, err := embeddedSchemas.ReadFile("schemas/" + string(kind) + ".json")
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMissingSchema, kind, err)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", kind, err)
		}
		set[kind] = schema
	}
	return set, nil
}

// validate checks raw against the schema for kind. Violations are reported
// as generation.ErrInvalidResponse with every failing field listed.
func (s schemaSet) validate(kind domain.ArtifactKind, raw []byte) error {
	schema, ok := s[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingSchema, kind)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", generation.ErrInvalidResponse, kind, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		problems = append(problems, field+": "+desc.Description())
	}
	return fmt.Errorf("%w: %s does not match schema: %s",
		generation.ErrInvalidResponse, kind, strings.Join(problems, "; "))
}
