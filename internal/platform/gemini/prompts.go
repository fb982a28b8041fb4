package gemini

import (
	"embed"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"text/template"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/generation"
)

//go:embed prompts/*.tmpl
var embeddedPrompts embed.FS

// bundleTemplate wraps the per-kind sections into one prompt.
const bundleTemplate = "bundle.tmpl"

// promptData is passed to every template.
type promptData struct {
	Transcript      string
	DurationMinutes int
	Sections        []promptSection
}

type promptSection struct {
	Kind         domain.ArtifactKind
	Instructions string
}

// promptSet holds the parsed bundle template and one template per artifact
// kind, named "<kind>.tmpl".
type promptSet struct {
	tmpl *template.Template
}

// loadPrompts parses the templates in dir, or the embedded defaults when dir
// is empty. Every artifact kind must have a template.
func loadPrompts(dir string) (*promptSet, error) {
	var fsys fs.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(embeddedPrompts, "prompts")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded prompts: %w", err)
		}
		fsys = sub
	}

	tmpl, err := template.ParseFS(fsys, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt templates: %v", generation.ErrInvalidConfig, err)
	}

	if tmpl.Lookup(bundleTemplate) == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingTemplate, bundleTemplate)
	}
	for _, kind := range domain.AllArtifactKinds {
		if tmpl.Lookup(templateName(kind)) == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingTemplate, templateName(kind))
		}
	}

	return &promptSet{tmpl: tmpl}, nil
}

// render builds the prompt asking for exactly the given kinds.
func (p *promptSet) render(transcript domain.Transcript, kinds []domain.ArtifactKind) (string, error) {
	data := promptData{
		Transcript:      transcript.Text(),
		DurationMinutes: int(math.Round(transcript.Duration() / 60)),
	}

	for _, kind := range kinds {
		var b strings.Builder
		if err := p.tmpl.ExecuteTemplate(&b, templateName(kind), data); err != nil {
			return "", fmt.Errorf("failed to execute %s prompt template: %w", kind, err)
		}
		data.Sections = append(data.Sections, promptSection{
			Kind:         kind,
			Instructions: strings.TrimSpace(b.String()),
		})
	}

	var b strings.Builder
	if err := p.tmpl.ExecuteTemplate(&b, bundleTemplate, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return b.String(), nil
}

func templateName(kind domain.ArtifactKind) string {
	return string(kind) + ".tmpl"
}
