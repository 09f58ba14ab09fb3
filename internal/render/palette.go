package render

import (
	"fmt"
	"strings"

	"github.com/autolink/autolink/internal/patterns"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

var (
	// DefaultLinkColor is used for regions whose category has no color.
	DefaultLinkColor = mustNamed("red")
	// DefaultSelectedColor is where the activation transition starts.
	DefaultSelectedColor = mustNamed("lightgray")
)

// ParseColor accepts #rgb, #rrggbb or a CSS color name.
func ParseColor(raw string) (colorful.Color, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return colorful.Color{}, fmt.Errorf("empty color")
	}
	if strings.HasPrefix(value, "#") {
		c, err := colorful.Hex(value)
		if err != nil {
			return colorful.Color{}, fmt.Errorf("parse color %q: %w", raw, err)
		}
		return c, nil
	}
	rgba, ok := colornames.Map[value]
	if !ok {
		return colorful.Color{}, fmt.Errorf("unknown color name %q", raw)
	}
	c, _ := colorful.MakeColor(rgba)
	return c, nil
}

func mustNamed(name string) colorful.Color {
	c, err := ParseColor(name)
	if err != nil {
		panic(err)
	}
	return c
}

// Palette holds an optional color per category. A category without an
// entry is unset, even if another category uses the default link color.
type Palette struct {
	colors map[patterns.Category]colorful.Color
}

func NewPalette() *Palette {
	return &Palette{colors: make(map[patterns.Category]colorful.Color)}
}

// PaletteFromStrings parses a category -> color map as found in config.
func PaletteFromStrings(raw map[string]string) (*Palette, error) {
	p := NewPalette()
	for name, value := range raw {
		category, err := patterns.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		c, err := ParseColor(value)
		if err != nil {
			return nil, fmt.Errorf("color for %s: %w", category, err)
		}
		p.Set(category, c)
	}
	return p, nil
}

func (p *Palette) Set(category patterns.Category, c colorful.Color) {
	p.colors[category] = c
}

func (p *Palette) Unset(category patterns.Category) {
	delete(p.colors, category)
}

func (p *Palette) Lookup(category patterns.Category) (colorful.Color, bool) {
	if p == nil {
		return colorful.Color{}, false
	}
	c, ok := p.colors[category]
	return c, ok
}

// Configured reports whether any category has a color.
func (p *Palette) Configured() bool {
	return p != nil && len(p.colors) > 0
}
