package main

import (
	"beadgrid/internal/imaging"
	"beadgrid/internal/palette"
	"beadgrid/internal/pattern"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

type PatternService struct {
	store     *pattern.Store
	exportDir string
}

func NewPatternService(store *pattern.Store, exportDir string) *PatternService {
	return &PatternService{store: store, exportDir: exportDir}
}

func (s *PatternService) GetState() pattern.State {
	return s.store.GetState()
}

func (s *PatternService) Clear() pattern.State {
	return s.store.Clear()
}

// ExportImage renders the current pattern and writes it to a new file in the export directory,
// returning the written file path. Existing exports are never overwritten.
func (s *PatternService) ExportImage(format string, cellSize int) (string, error) {
	state := s.store.GetState()
	if state.GridWidth == 0 || state.GridHeight == 0 {
		return "", errors.New("there is no pattern to export")
	}

	pal, err := exportPalette(state)
	if err != nil {
		return "", err
	}

	canvas, err := imaging.Render(state.Matrix, pal, cellSize)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, format); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	base := fmt.Sprintf("pattern-%s-%d", time.Now().Format("20060102-150405"), state.RequestID)
	return writeExclusive(s.exportDir, base, imaging.FormatExtension(format), buf.Bytes())
}

// exportPalette rebuilds the colors of the pattern from its counts. A pattern without any colored
// cell renders with an empty palette.
func exportPalette(state pattern.State) (palette.Palette, error) {
	if len(state.Counts) == 0 {
		return palette.Palette{Name: state.PaletteName}, nil
	}

	colors := make([]palette.Color, 0, len(state.Counts))
	for _, count := range state.Counts {
		colors = append(colors, palette.Color{ID: count.ID, Hex: count.Hex, Name: count.Name, Code: count.Code})
	}

	pal, err := palette.New(state.PaletteName, colors)
	if err != nil {
		return palette.Palette{}, fmt.Errorf("build export palette: %w", err)
	}

	return pal, nil
}

const maxExportAttempts = 100

func writeExclusive(dir string, base string, extension string, data []byte) (string, error) {
	for attempt := 1; attempt <= maxExportAttempts; attempt++ {
		name := base + extension
		if attempt > 1 {
			name = fmt.Sprintf("%s-%d%s", base, attempt, extension)
		}
		target := filepath.Join(dir, name)

		file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create export: %w", err)
		}

		if _, err := file.Write(data); err != nil {
			file.Close()
			os.Remove(target)
			return "", fmt.Errorf("write export: %w", err)
		}
		if err := file.Close(); err != nil {
			return "", fmt.Errorf("close export: %w", err)
		}

		return target, nil
	}

	return "", fmt.Errorf("no free export name for %s%s", base, extension)
}
