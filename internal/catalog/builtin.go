package catalog

import (
	"beadgrid/internal/palette"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// Builtin returns the palettes shipped with the application.
func Builtin() ([]palette.Palette, error) {
	files, err := fs.Glob(builtinFS, "builtin/*.json")
	if err != nil {
		return nil, fmt.Errorf("list builtin palettes: %w", err)
	}
	sort.Strings(files)

	palettes := make([]palette.Palette, 0, len(files))
	for _, file := range files {
		data, err := builtinFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read builtin palette %s: %w", file, err)
		}

		pal, err := Parse(data, path.Base(file))
		if err != nil {
			return nil, fmt.Errorf("parse builtin palette %s: %w", file, err)
		}
		palettes = append(palettes, pal)
	}

	return palettes, nil
}

// NewDefaultRegistry registers the built-in palettes and whatever user palettes paletteDir holds.
// User palette errors are returned alongside a usable registry.
func NewDefaultRegistry(paletteDir string) (*Registry, error) {
	registry := NewRegistry()

	builtin, err := Builtin()
	if err != nil {
		return nil, err
	}
	if err := registry.Replace(SourceBuiltin, builtin); err != nil {
		return nil, fmt.Errorf("register builtin palettes: %w", err)
	}

	if paletteDir == "" {
		return registry, nil
	}

	return registry, registry.ReloadDir(paletteDir)
}

// ReloadDir replaces the user palettes with the contents of dir. Palettes that load are registered
// even when others fail.
func (r *Registry) ReloadDir(dir string) error {
	palettes, loadErr := LoadDir(dir)
	if palettes == nil {
		return loadErr
	}

	if err := r.Replace(SourceUser, palettes); err != nil {
		return fmt.Errorf("register user palettes: %w", err)
	}

	return loadErr
}
