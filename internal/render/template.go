package render

import (
	"embed"
	"fmt"

	"github.com/distrack-profile/internal/domain"
)

//go:embed templates/*.svg
var templateFS embed.FS

// LoadTemplate returns the SVG template for a profile card variant.
// Templates are static assets compiled into the binary and immutable at
// request time.
func LoadTemplate(variant string) (string, error) {
	data, err := templateFS.ReadFile("templates/" + variant + ".svg")
	if err != nil {
		return "", fmt.Errorf("loading template %q: %w", variant, domain.ErrTemplateNotFound)
	}
	return string(data), nil
}
