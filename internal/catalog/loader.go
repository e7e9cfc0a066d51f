package catalog

import (
	"beadgrid/internal/colorspace"
	"beadgrid/internal/palette"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const FileExtension = ".json"

type paletteFile struct {
	Name   string      `json:"name"`
	Brand  string      `json:"brand"`
	Colors []colorFile `json:"colors"`
}

type colorFile struct {
	ID     string `json:"id"`
	Hex    string `json:"hex"`
	Name   string `json:"name"`
	Brand  string `json:"brand"`
	Code   string `json:"code"`
	Series string `json:"series"`
}

// Parse decodes a palette file. fallbackName names the palette when the file does not. Unlike the
// color math, which tolerates malformed hex, a palette file with an invalid hex value is rejected.
func Parse(data []byte, fallbackName string) (palette.Palette, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var file paletteFile
	if err := decoder.Decode(&file); err != nil {
		return palette.Palette{}, fmt.Errorf("decode palette json: %w", err)
	}

	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = strings.TrimSpace(fallbackName)
	}
	if name == "" {
		return palette.Palette{}, errors.New("palette name is required")
	}

	colors := make([]palette.Color, 0, len(file.Colors))
	for index, item := range file.Colors {
		if !colorspace.ValidHex(item.Hex) {
			return palette.Palette{}, fmt.Errorf("palette %q: color %d (%s) has invalid hex %q", name, index, item.ID, item.Hex)
		}

		brand := item.Brand
		if strings.TrimSpace(brand) == "" {
			brand = file.Brand
		}
		colors = append(colors, palette.NewColor(item.ID, item.Hex, item.Name, brand, item.Code, item.Series))
	}

	return palette.New(name, colors)
}

func LoadFile(path string) (palette.Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return palette.Palette{}, fmt.Errorf("read palette file: %w", err)
	}

	pal, err := Parse(data, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err != nil {
		return palette.Palette{}, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}

	return pal, nil
}

// LoadDir loads every palette file directly inside dir in file name order. Files that fail to load
// are skipped and reported in the joined error; a missing directory holds no palettes.
func LoadDir(dir string) ([]palette.Palette, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []palette.Palette{}, nil
		}
		return nil, fmt.Errorf("read palette dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, item := range entries {
		if item.IsDir() || !IsPaletteFile(item.Name()) {
			continue
		}
		names = append(names, item.Name())
	}
	sort.Strings(names)

	palettes := make([]palette.Palette, 0, len(names))
	seen := make(map[string]string, len(names))
	var loadErrs []error
	for _, name := range names {
		pal, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			loadErrs = append(loadErrs, err)
			continue
		}
		if previous, exists := seen[nameKey(pal.Name)]; exists {
			loadErrs = append(loadErrs, fmt.Errorf("load %s: palette %q already defined by %s", name, pal.Name, previous))
			continue
		}
		seen[nameKey(pal.Name)] = name
		palettes = append(palettes, pal)
	}

	return palettes, errors.Join(loadErrs...)
}

func IsPaletteFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}

	return strings.EqualFold(filepath.Ext(base), FileExtension)
}
