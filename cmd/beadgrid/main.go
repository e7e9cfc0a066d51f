package main

import (
	"beadgrid/internal/catalog"
	"beadgrid/internal/imaging"
	"beadgrid/internal/palette"
	"beadgrid/internal/quantize"
	"beadgrid/internal/task"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/lmittmann/tint"
)

type Options struct {
	Width        int      `short:"w" long:"width" default:"32" description:"Grid width in beads"`
	Palette      string   `short:"p" long:"palette" default:"MARD" description:"Palette name"`
	PaletteDir   string   `long:"palette-dir" description:"Directory with additional palette JSON files"`
	Series       []string `short:"s" long:"series" description:"Restrict the palette to a series (repeatable)"`
	Format       string   `short:"f" long:"format" default:"text" choice:"text" choice:"json" description:"Output format"`
	Resampling   string   `long:"resampling" default:"bilinear" choice:"bilinear" choice:"approx-bilinear" choice:"nearest" choice:"catmull-rom" description:"Downsampling filter"`
	Workers      int      `long:"workers" description:"Worker goroutines for quantization (0 picks automatically)"`
	Cutoff       int      `long:"transparent-cutoff" description:"Alpha below which a cell stays empty (0 disables)"`
	Render       string   `short:"o" long:"render" description:"Write a rendered preview image to this path"`
	CellSize     int      `long:"cell-size" default:"12" description:"Pixels per bead in the rendered preview"`
	Stats        bool     `long:"stats" description:"Report color error of the mapping"`
	ListPalettes bool     `short:"l" long:"list-palettes" description:"List available palettes and exit"`
	Verbose      bool     `short:"v" long:"verbose" description:"Log debug output"`
}

type result struct {
	Palette  string                `json:"palette"`
	Width    int                   `json:"width"`
	Height   int                   `json:"height"`
	Matrix   quantize.Matrix       `json:"matrix"`
	Counts   []quantize.ColorCount `json:"counts"`
	Fidelity *quantize.Fidelity    `json:"fidelity,omitempty"`
}

func main() {
	var opts Options

	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] IMAGE"
	args, err := parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))

	if err := run(opts, args, os.Stdout, logger); err != nil {
		logger.Error("beadgrid failed", "error", err)
		os.Exit(1)
	}
}

func run(opts Options, args []string, out io.Writer, logger *slog.Logger) error {
	registry, err := catalog.NewDefaultRegistry(opts.PaletteDir)
	if registry == nil {
		return err
	}
	if err != nil {
		logger.Warn("some palettes could not be loaded", "dir", opts.PaletteDir, "error", err)
	}

	if opts.ListPalettes {
		return listPalettes(out, registry.List())
	}
	if len(args) != 1 {
		return errors.New("expected exactly one input image")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image file: %w", err)
	}
	decoded, err := imaging.Decode(data)
	if err != nil {
		return err
	}

	pal, err := registry.Select(opts.Palette, opts.Series)
	if err != nil {
		return err
	}

	options := quantize.NormalizeOptions(quantize.Options{
		Resampling:        opts.Resampling,
		WorkerCount:       opts.Workers,
		TransparentCutoff: opts.Cutoff,
	})
	samples, err := quantize.Downsample(decoded.Image, opts.Width, options)
	if err != nil {
		return err
	}

	runner := task.NewRunner(logger)
	defer runner.Close()

	// The runner owns its buffer; Measure reads samples afterwards.
	pixels := make([]byte, len(samples.Pix))
	copy(pixels, samples.Pix)
	response := runner.Run(task.Request{
		ID:         1,
		Pixels:     pixels,
		GridWidth:  samples.Width,
		GridHeight: samples.Height,
		Palette:    pal,
		Options:    options,
	})
	if err := task.ErrorFromResponse(response); err != nil {
		return err
	}

	report := result{
		Palette: pal.Name,
		Width:   response.Matrix.Width(),
		Height:  response.Matrix.Height(),
		Matrix:  response.Matrix,
		Counts:  quantize.CountColors(response.Matrix, pal),
	}
	if opts.Stats {
		fidelity, err := quantize.Measure(samples, response.Matrix, pal)
		if err != nil {
			return err
		}
		report.Fidelity = &fidelity
	}

	if opts.Render != "" {
		if err := renderPreview(opts.Render, response.Matrix, pal, opts.CellSize); err != nil {
			return err
		}
		logger.Info("wrote preview", "path", opts.Render)
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	return writeText(out, report, pal)
}

func renderPreview(path string, matrix quantize.Matrix, pal palette.Palette, cellSize int) error {
	canvas, err := imaging.Render(matrix, pal, cellSize)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()

	return imaging.Encode(file, canvas, strings.TrimPrefix(filepath.Ext(path), "."))
}

func writeText(out io.Writer, report result, pal palette.Palette) error {
	labels := make(map[string]string, pal.Len())
	for _, color := range pal.Colors {
		label := color.Code
		if label == "" {
			label = color.ID
		}
		labels[color.ID] = label
	}

	cellWidth := 1
	for _, label := range labels {
		cellWidth = max(cellWidth, len(label))
	}

	fmt.Fprintf(out, "%s %dx%d\n", report.Palette, report.Width, report.Height)
	for _, row := range report.Matrix {
		cells := make([]string, len(row))
		for index, id := range row {
			label := labels[id]
			if id == quantize.NoColor {
				label = "."
			}
			cells[index] = fmt.Sprintf("%-*s", cellWidth, label)
		}
		fmt.Fprintln(out, strings.TrimRight(strings.Join(cells, " "), " "))
	}

	fmt.Fprintln(out)
	for _, count := range report.Counts {
		fmt.Fprintf(out, "%-*s %s %5d  %s\n", cellWidth, labels[count.ID], count.Hex, count.Count, count.Name)
	}

	if report.Fidelity != nil {
		fmt.Fprintf(
			out,
			"\ncells %d  mean ΔE76 %.2f  max ΔE76 %.2f  mean ΔE2000 %.2f\n",
			report.Fidelity.Cells,
			report.Fidelity.MeanDeltaE,
			report.Fidelity.MaxDeltaE,
			report.Fidelity.MeanDeltaE2000,
		)
	}

	return nil
}

func listPalettes(out io.Writer, summaries []catalog.Summary) error {
	for _, summary := range summaries {
		if _, err := fmt.Fprintf(out, "%-16s %-8s %3d colors  series %s\n", summary.Name, summary.Source, summary.Colors, strings.Join(summary.Series, ",")); err != nil {
			return err
		}
	}

	return nil
}
