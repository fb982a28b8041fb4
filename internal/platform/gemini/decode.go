package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/generation"
)

// decodeMaterials parses a response object keyed by artifact kind. Keys may
// use legacy camel-case names. Kinds that were not requested are ignored.
// An artifact that fails its schema is left out and reported in dropped, so
// one bad section does not discard the rest of a bundle.
//
// When a single kind was requested the model sometimes returns the artifact
// itself rather than wrapping it; that form is accepted too.
func decodeMaterials(
	text string,
	kinds []domain.ArtifactKind,
	schemas schemaSet,
) (materials *domain.Materials, dropped []error, err error) {
	body := []byte(stripCodeFence(text))
	if len(body) == 0 {
		return nil, nil, fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
	}

	wanted := make(map[domain.ArtifactKind]bool, len(kinds))
	for _, kind := range kinds {
		wanted[kind] = true
	}

	sections := make(map[domain.ArtifactKind]json.RawMessage, len(kinds))
	var object map[string]json.RawMessage
	objectErr := json.Unmarshal(body, &object)
	for key, raw := range object {
		kind, err := domain.ParseArtifactKind(key)
		if err != nil || !wanted[kind] {
			continue
		}
		sections[kind] = raw
	}

	if len(sections) == 0 && len(kinds) == 1 {
		if !json.Valid(body) {
			return nil, nil, fmt.Errorf("%w: response is not valid JSON", generation.ErrInvalidResponse)
		}
		sections[kinds[0]] = body
	} else if objectErr != nil {
		return nil, nil, fmt.Errorf("%w: response is not a JSON object: %v", generation.ErrInvalidResponse, objectErr)
	}

	materials = domain.NewMaterials()
	for _, kind := range kinds {
		raw, ok := sections[kind]
		if !ok {
			continue
		}
		artifact, err := decodeArtifact(kind, raw, schemas)
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		materials.Set(artifact)
	}
	return materials, dropped, nil
}

func decodeArtifact(kind domain.ArtifactKind, raw json.RawMessage, schemas schemaSet) (domain.Artifact, error) {
	if err := schemas.validate(kind, raw); err != nil {
		return nil, err
	}
	artifact, err := domain.NewArtifact(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, artifact); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", generation.ErrInvalidResponse, kind, err)
	}
	return artifact, nil
}

// stripCodeFence removes a surrounding markdown code fence, which models
// occasionally add even when asked for raw JSON.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = ""
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
