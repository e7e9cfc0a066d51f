package catalog

import (
	"beadgrid/internal/palette"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrPaletteNotFound = errors.New("palette not found")

const (
	SourceBuiltin = "builtin"
	SourceUser    = "user"
)

// Summary describes a registered palette without its colors.
type Summary struct {
	Name   string   `json:"name"`
	Brand  string   `json:"brand"`
	Source string   `json:"source"`
	Colors int      `json:"colors"`
	Series []string `json:"series"`
}

type entry struct {
	palette palette.Palette
	brand   string
	source  string
}

// Registry holds the palettes available for quantization. User palettes shadow built-in palettes
// with the same name. Every palette handed out is a clone.
type Registry struct {
	mu      sync.RWMutex
	sources map[string][]entry
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string][]entry)}
}

// Replace swaps every palette registered under source for palettes.
func (r *Registry) Replace(source string, palettes []palette.Palette) error {
	entries := make([]entry, 0, len(palettes))
	seen := make(map[string]struct{}, len(palettes))
	for _, pal := range palettes {
		key := nameKey(pal.Name)
		if key == "" {
			return errors.New("palette name is required")
		}
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate palette name %q in %s palettes", pal.Name, source)
		}
		if pal.Empty() {
			return fmt.Errorf("palette %q: %w", pal.Name, palette.ErrEmptyPalette)
		}
		seen[key] = struct{}{}
		entries = append(entries, entry{palette: pal.Clone(), brand: brandOf(pal), source: source})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source] = entries
	return nil
}

func (r *Registry) Names() []string {
	summaries := r.List()
	names := make([]string, len(summaries))
	for index, summary := range summaries {
		names[index] = summary.Name
	}

	return names
}

// List returns built-in palettes first, then user palettes, each group sorted by name.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]Summary, 0)
	for _, source := range []string{SourceBuiltin, SourceUser} {
		group := make([]Summary, 0, len(r.sources[source]))
		for _, item := range r.sources[source] {
			if source == SourceBuiltin && r.shadowedLocked(item.palette.Name) {
				continue
			}
			group = append(group, Summary{
				Name:   item.palette.Name,
				Brand:  item.brand,
				Source: item.source,
				Colors: item.palette.Len(),
				Series: item.palette.Series(),
			})
		}
		sort.SliceStable(group, func(i int, j int) bool {
			return strings.ToLower(group[i].Name) < strings.ToLower(group[j].Name)
		})
		summaries = append(summaries, group...)
	}

	return summaries
}

func (r *Registry) Get(name string) (palette.Palette, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.lookupLocked(name)
	if !ok {
		return palette.Palette{}, fmt.Errorf("palette %q: %w", name, ErrPaletteNotFound)
	}

	return item.palette.Clone(), nil
}

// Select returns the named palette restricted to the given series. An empty series list selects
// the whole palette; a selection that matches no colors is an empty-palette error.
func (r *Registry) Select(name string, series []string) (palette.Palette, error) {
	pal, err := r.Get(name)
	if err != nil {
		return palette.Palette{}, err
	}

	selected := pal.FilterSeries(series...)
	if selected.Empty() {
		return palette.Palette{}, fmt.Errorf("palette %q series %v: %w", name, series, palette.ErrEmptyPalette)
	}

	return selected, nil
}

func (r *Registry) lookupLocked(name string) (entry, bool) {
	key := nameKey(name)
	for _, source := range []string{SourceUser, SourceBuiltin} {
		for _, item := range r.sources[source] {
			if nameKey(item.palette.Name) == key {
				return item, true
			}
		}
	}

	return entry{}, false
}

func (r *Registry) shadowedLocked(name string) bool {
	key := nameKey(name)
	for _, item := range r.sources[SourceUser] {
		if nameKey(item.palette.Name) == key {
			return true
		}
	}

	return false
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func brandOf(pal palette.Palette) string {
	for _, color := range pal.Colors {
		if color.Brand != "" {
			return color.Brand
		}
	}

	return ""
}
