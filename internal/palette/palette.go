package palette

import (
	"beadgrid/internal/colorspace"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrEmptyPalette = errors.New("palette is empty")

type Color struct {
	ID     string `json:"id"`
	Hex    string `json:"hex"`
	Name   string `json:"name"`
	Brand  string `json:"brand"`
	Code   string `json:"code,omitempty"`
	Series string `json:"series,omitempty"`
}

// Palette is an ordered color list. Order is significant: the resolver breaks ties in favor of the
// earlier entry, so nothing here ever sorts colors.
type Palette struct {
	Name   string  `json:"name"`
	Colors []Color `json:"colors"`
}

// NewColor builds a Color with a normalized hex value and a series derived from code when none is given.
func NewColor(id string, hex string, name string, brand string, code string, series string) Color {
	code = strings.TrimSpace(code)
	series = strings.TrimSpace(series)
	if series == "" {
		series = DeriveSeries(code)
	}

	return Color{
		ID:     strings.TrimSpace(id),
		Hex:    colorspace.NormalizeHex(hex),
		Name:   strings.TrimSpace(name),
		Brand:  strings.TrimSpace(brand),
		Code:   code,
		Series: series,
	}
}

// DeriveSeries returns the leading letter prefix of a display code ("A12" -> "A", "S92" -> "S").
func DeriveSeries(code string) string {
	trimmed := strings.TrimSpace(code)
	end := 0
	for index, char := range trimmed {
		if !unicode.IsLetter(char) {
			break
		}
		end = index + len(string(char))
	}

	return strings.ToUpper(trimmed[:end])
}

func New(name string, colors []Color) (Palette, error) {
	if len(colors) == 0 {
		return Palette{}, fmt.Errorf("palette %q: %w", name, ErrEmptyPalette)
	}

	seen := make(map[string]struct{}, len(colors))
	normalized := make([]Color, len(colors))
	for index, color := range colors {
		if color.ID == "" {
			return Palette{}, fmt.Errorf("palette %q: color %d has no id", name, index)
		}
		if _, exists := seen[color.ID]; exists {
			return Palette{}, fmt.Errorf("palette %q: duplicate color id %q", name, color.ID)
		}
		seen[color.ID] = struct{}{}

		color.Hex = colorspace.NormalizeHex(color.Hex)
		normalized[index] = color
	}

	return Palette{Name: name, Colors: normalized}, nil
}

func (p Palette) Len() int {
	return len(p.Colors)
}

func (p Palette) Empty() bool {
	return len(p.Colors) == 0
}

func (p Palette) Contains(id string) bool {
	_, ok := p.Lookup(id)
	return ok
}

func (p Palette) Lookup(id string) (Color, bool) {
	for _, color := range p.Colors {
		if color.ID == id {
			return color, true
		}
	}

	return Color{}, false
}

// Clone returns a palette that shares nothing with p.
func (p Palette) Clone() Palette {
	colors := make([]Color, len(p.Colors))
	copy(colors, p.Colors)
	return Palette{Name: p.Name, Colors: colors}
}

// Filter keeps the colors accepted by keep, in their original order.
func (p Palette) Filter(keep func(Color) bool) Palette {
	colors := make([]Color, 0, len(p.Colors))
	for _, color := range p.Colors {
		if keep(color) {
			colors = append(colors, color)
		}
	}

	return Palette{Name: p.Name, Colors: colors}
}

// FilterSeries keeps colors whose series is one of series (case-insensitive). No series means no filter.
func (p Palette) FilterSeries(series ...string) Palette {
	wanted := make(map[string]struct{}, len(series))
	for _, value := range series {
		if trimmed := strings.ToUpper(strings.TrimSpace(value)); trimmed != "" {
			wanted[trimmed] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return p.Clone()
	}

	filtered := p.Filter(func(color Color) bool {
		_, ok := wanted[strings.ToUpper(color.Series)]
		return ok
	})
	filtered.Name = fmt.Sprintf("%s[%s]", p.Name, strings.Join(seriesKeys(series), ","))
	return filtered
}

// Series lists the distinct series in first-seen order.
func (p Palette) Series() []string {
	seen := make(map[string]struct{})
	series := make([]string, 0)
	for _, color := range p.Colors {
		if color.Series == "" {
			continue
		}
		if _, ok := seen[color.Series]; ok {
			continue
		}
		seen[color.Series] = struct{}{}
		series = append(series, color.Series)
	}

	return series
}

func seriesKeys(values []string) []string {
	keys := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.ToUpper(strings.TrimSpace(value)); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}

	return keys
}
