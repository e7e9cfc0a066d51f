package main

import (
	"beadgrid/internal/catalog"
	"context"
	"errors"
	"fmt"
)

const defaultPaletteName = "MARD"

type SettingsService struct {
	selections *catalog.SelectionRepository
	registry   *catalog.Registry
}

func NewSettingsService(selections *catalog.SelectionRepository, registry *catalog.Registry) *SettingsService {
	return &SettingsService{selections: selections, registry: registry}
}

// GetSelection returns the saved palette selection, or the default palette when nothing is saved
// or the saved palette no longer exists.
func (s *SettingsService) GetSelection() (catalog.Selection, error) {
	selection, err := s.selections.Get(context.Background())
	if errors.Is(err, catalog.ErrNoSelection) {
		return catalog.Selection{PaletteName: defaultPaletteName, Series: []string{}}, nil
	}
	if err != nil {
		return catalog.Selection{}, err
	}

	if _, lookupErr := s.registry.Get(selection.PaletteName); errors.Is(lookupErr, catalog.ErrPaletteNotFound) {
		selection.PaletteName = defaultPaletteName
		selection.Series = []string{}
	}

	return selection, nil
}

func (s *SettingsService) SaveSelection(selection catalog.Selection) (catalog.Selection, error) {
	if _, err := s.registry.Select(selection.PaletteName, selection.Series); err != nil {
		return catalog.Selection{}, fmt.Errorf("save selection: %w", err)
	}

	return s.selections.Save(context.Background(), selection)
}

func (s *SettingsService) ResetSelection() error {
	return s.selections.Clear(context.Background())
}
