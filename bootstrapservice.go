package main

import (
	"beadgrid/internal/catalog"
	"beadgrid/internal/pattern"
	"beadgrid/internal/quantize"
)

type StartupSnapshot struct {
	Palettes       []catalog.Summary `json:"palettes"`
	Selection      catalog.Selection `json:"selection"`
	Pattern        pattern.State     `json:"pattern"`
	DefaultOptions quantize.Options  `json:"defaultOptions"`
}

type BootstrapService struct {
	registry *catalog.Registry
	store    *pattern.Store
	settings *SettingsService
}

func NewBootstrapService(registry *catalog.Registry, store *pattern.Store, settings *SettingsService) *BootstrapService {
	return &BootstrapService{
		registry: registry,
		store:    store,
		settings: settings,
	}
}

func (s *BootstrapService) GetInitialState() (StartupSnapshot, error) {
	selection, err := s.settings.GetSelection()
	if err != nil {
		return StartupSnapshot{}, err
	}

	return StartupSnapshot{
		Palettes:       s.registry.List(),
		Selection:      selection,
		Pattern:        s.store.GetState(),
		DefaultOptions: quantize.DefaultOptions(),
	}, nil
}
