package main

import (
	"beadgrid/internal/catalog"
	"beadgrid/internal/palette"
)

type PaletteService struct {
	registry *catalog.Registry
	watcher  *catalog.Watcher
}

func NewPaletteService(registry *catalog.Registry, watcher *catalog.Watcher) *PaletteService {
	return &PaletteService{registry: registry, watcher: watcher}
}

func (s *PaletteService) ListPalettes() []catalog.Summary {
	return s.registry.List()
}

func (s *PaletteService) GetPalette(name string) (palette.Palette, error) {
	return s.registry.Get(name)
}

func (s *PaletteService) ListSeries(name string) ([]string, error) {
	pal, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}

	return pal.Series(), nil
}

func (s *PaletteService) ReloadPalettes() []catalog.Summary {
	s.watcher.Reload()
	return s.registry.List()
}
