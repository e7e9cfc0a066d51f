package main

import (
	"beadgrid/internal/catalog"
	"beadgrid/internal/imaging"
	"beadgrid/internal/pattern"
	"beadgrid/internal/quantize"
	"beadgrid/internal/task"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type QuantizeInput struct {
	Image       []byte           `json:"image"`
	ImagePath   string           `json:"imagePath"`
	GridWidth   int              `json:"gridWidth"`
	PaletteName string           `json:"paletteName"`
	Series      []string         `json:"series"`
	Options     quantize.Options `json:"options"`
}

type QuantizeService struct {
	registry   *catalog.Registry
	runner     *task.Runner
	store      *pattern.Store
	selections *catalog.SelectionRepository
	logger     *slog.Logger
}

func NewQuantizeService(
	registry *catalog.Registry,
	runner *task.Runner,
	store *pattern.Store,
	selections *catalog.SelectionRepository,
	logger *slog.Logger,
) *QuantizeService {
	if logger == nil {
		logger = slog.Default()
	}

	return &QuantizeService{
		registry:   registry,
		runner:     runner,
		store:      store,
		selections: selections,
		logger:     logger,
	}
}

func (s *QuantizeService) DefaultOptions() quantize.Options {
	return quantize.DefaultOptions()
}

// Quantize starts a run and returns its request id. The finished pattern arrives through the
// pattern state event; a newer call supersedes any run still in flight.
func (s *QuantizeService) Quantize(input QuantizeInput) (uint64, error) {
	req, err := s.prepare(input)
	if err != nil {
		return 0, err
	}

	_, id, err := s.store.Dispatch(s.runner, req)
	if err != nil {
		return 0, err
	}

	if s.selections != nil {
		if _, saveErr := s.selections.Save(context.Background(), catalog.Selection{
			PaletteName: input.PaletteName,
			Series:      input.Series,
			GridWidth:   input.GridWidth,
		}); saveErr != nil {
			s.logger.Warn("could not remember palette selection", "error", saveErr)
		}
	}

	return id, nil
}

func (s *QuantizeService) prepare(input QuantizeInput) (task.Request, error) {
	if input.GridWidth < 1 {
		return task.Request{}, fmt.Errorf("grid width %d: %w", input.GridWidth, quantize.ErrInvalidGridWidth)
	}
	if strings.TrimSpace(input.PaletteName) == "" {
		return task.Request{}, errors.New("palette name is required")
	}

	data, err := readImageInput(input)
	if err != nil {
		return task.Request{}, err
	}

	decoded, err := imaging.Decode(data)
	if err != nil {
		return task.Request{}, err
	}

	pal, err := s.registry.Select(input.PaletteName, input.Series)
	if err != nil {
		return task.Request{}, err
	}

	options := quantize.NormalizeOptions(input.Options)
	samples, err := quantize.Downsample(decoded.Image, input.GridWidth, options)
	if err != nil {
		return task.Request{}, err
	}

	s.logger.Debug(
		"prepared quantization request",
		"format", decoded.Format,
		"source", fmt.Sprintf("%dx%d", decoded.Width, decoded.Height),
		"grid", fmt.Sprintf("%dx%d", samples.Width, samples.Height),
		"palette", pal.Name,
		"colors", pal.Len(),
	)

	return task.Request{
		Pixels:     samples.Pix,
		GridWidth:  samples.Width,
		GridHeight: samples.Height,
		Palette:    pal,
		Options:    options,
	}, nil
}

func readImageInput(input QuantizeInput) ([]byte, error) {
	if len(input.Image) > 0 {
		return input.Image, nil
	}

	path := strings.TrimSpace(input.ImagePath)
	if path == "" {
		return nil, errors.New("image is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image file: %w", err)
	}

	return data, nil
}
