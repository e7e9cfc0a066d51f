package quantize

import (
	"beadgrid/internal/palette"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

func TestQuantizeSolidRedPicksRed(t *testing.T) {
	t.Parallel()

	img := solidImage(2, 2, color.NRGBA{R: 255, A: 255})
	pal := mustPalette(t, palette.Color{ID: "A", Hex: "#FF0000"}, palette.Color{ID: "B", Hex: "#00FF00"})

	matrix := runPipeline(t, img, 2, pal, Options{})
	assertMatrix(t, matrix, Matrix{{"A", "A"}, {"A", "A"}})
}

func TestQuantizeSingleEntryPaletteFillsEveryCell(t *testing.T) {
	t.Parallel()

	img := solidImage(2, 2, color.NRGBA{R: 255, A: 255})
	pal := mustPalette(t, palette.Color{ID: "A", Hex: "#0000FF"})

	matrix := runPipeline(t, img, 2, pal, Options{})
	assertMatrix(t, matrix, Matrix{{"A", "A"}, {"A", "A"}})
}

func TestQuantizeKeepsAspectRatio(t *testing.T) {
	t.Parallel()

	img := solidImage(4, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	pal := mustPalette(t, palette.Color{ID: "A", Hex: "#000000"})

	matrix := runPipeline(t, img, 4, pal, Options{})
	if matrix.Height() != 2 || matrix.Width() != 4 {
		t.Fatalf("expected 4x2 matrix, got %dx%d", matrix.Width(), matrix.Height())
	}
}

func TestGridDimensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		srcW, srcH, gridWidth, wantHeight int
	}{
		{100, 100, 10, 10},
		{300, 200, 30, 20},
		{200, 300, 20, 30},
		{1000, 3, 10, 1},
		{1000, 1, 3, 1},
		{3, 2, 5, 3},
		{7, 3, 1, 1},
		{10, 25, 4, 10},
	}

	for _, tc := range tests {
		want := int(math.Round(float64(tc.gridWidth) * float64(tc.srcH) / float64(tc.srcW)))
		if want < 1 {
			want = 1
		}
		if want != tc.wantHeight {
			t.Fatalf("bad test row %+v: formula gives %d", tc, want)
		}

		img := solidImage(tc.srcW, tc.srcH, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
		samples, err := Downsample(img, tc.gridWidth, Options{})
		if err != nil {
			t.Fatalf("downsample %+v: %v", tc, err)
		}
		if samples.Width != tc.gridWidth || samples.Height != tc.wantHeight {
			t.Fatalf("%+v: got %dx%d", tc, samples.Width, samples.Height)
		}
		if err := samples.Validate(); err != nil {
			t.Fatalf("%+v: %v", tc, err)
		}
	}
}

func TestDownsampleRejectsBadInput(t *testing.T) {
	t.Parallel()

	img := solidImage(2, 2, color.NRGBA{A: 255})
	if _, err := Downsample(img, 0, Options{}); !errors.Is(err, ErrInvalidGridWidth) {
		t.Fatalf("expected ErrInvalidGridWidth, got %v", err)
	}
	if _, err := Downsample(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 4, Options{}); err == nil {
		t.Fatal("expected error for empty image")
	}
	if _, err := Downsample(nil, 4, Options{}); err == nil {
		t.Fatal("expected error for nil image")
	}
}

func TestDownsampleRejectsOversizedGrid(t *testing.T) {
	t.Parallel()

	square := solidImage(1000, 1000, color.NRGBA{A: 255})
	if _, err := Downsample(square, 100000, Options{}); !errors.Is(err, ErrGridTooLarge) {
		t.Fatalf("expected ErrGridTooLarge for wide grid, got %v", err)
	}

	tall := solidImage(1, 4000, color.NRGBA{A: 255})
	if _, err := Downsample(tall, 512, Options{}); !errors.Is(err, ErrGridTooLarge) {
		t.Fatalf("expected ErrGridTooLarge for tall grid, got %v", err)
	}

	samples, err := Downsample(solidImage(64, 64, color.NRGBA{A: 255}), MaxGridWidth, Options{})
	if err != nil {
		t.Fatalf("grid at the width limit: %v", err)
	}
	if samples.Width*samples.Height > MaxGridCells {
		t.Fatalf("grid %dx%d exceeds the cell limit", samples.Width, samples.Height)
	}

	oversized := Samples{Width: MaxGridWidth + 1, Height: 1}
	if err := oversized.Validate(); !errors.Is(err, ErrGridTooLarge) {
		t.Fatalf("expected ErrGridTooLarge from Validate, got %v", err)
	}
}

func TestDownsampleBilinearIsWeightedNotBoxAverage(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			fill := color.NRGBA{R: 255, A: 255}
			if x%2 == 1 {
				fill = color.NRGBA{B: 255, A: 255}
			}
			img.SetNRGBA(x, y, fill)
		}
	}

	samples, err := Downsample(img, 2, Options{})
	if err != nil {
		t.Fatalf("downsample: %v", err)
	}

	left, _ := samples.At(0, 0)
	right, _ := samples.At(1, 0)
	if left.R <= left.B || right.B <= right.R {
		t.Fatalf("expected cells weighted toward their nearest source column, got %+v %+v", left, right)
	}
}

func TestQuantizeEmptyPaletteFails(t *testing.T) {
	t.Parallel()

	samples := FromNRGBA(solidImage(2, 2, color.NRGBA{A: 255}))
	matrix, err := Quantize(samples, palette.Palette{Name: "empty"}, Options{})
	if !errors.Is(err, palette.ErrEmptyPalette) {
		t.Fatalf("expected ErrEmptyPalette, got %v", err)
	}
	if matrix != nil {
		t.Fatalf("expected no matrix, got %v", matrix)
	}
}

func TestQuantizeRejectsMalformedBuffer(t *testing.T) {
	t.Parallel()

	pal := mustPalette(t, palette.Color{ID: "A", Hex: "#000000"})
	_, err := Quantize(Samples{Width: 2, Height: 2, Pix: make([]uint8, 7)}, pal, Options{})
	if err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestQuantizeIsDeterministicAndWorkerIndependent(t *testing.T) {
	t.Parallel()

	img := gradientImage(64, 48)
	pal := mustPalette(t,
		palette.Color{ID: "black", Hex: "#000000"},
		palette.Color{ID: "white", Hex: "#FFFFFF"},
		palette.Color{ID: "red", Hex: "#E53935"},
		palette.Color{ID: "green", Hex: "#43A047"},
		palette.Color{ID: "blue", Hex: "#1E88E5"},
		palette.Color{ID: "yellow", Hex: "#FDD835"},
		palette.Color{ID: "purple", Hex: "#8E24AA"},
		palette.Color{ID: "grey", Hex: "#9E9E9E"},
	)

	samples, err := Downsample(img, 32, Options{})
	if err != nil {
		t.Fatalf("downsample: %v", err)
	}

	serial, err := Quantize(samples, pal, Options{WorkerCount: 1})
	if err != nil {
		t.Fatalf("serial quantize: %v", err)
	}
	for run := 0; run < 3; run++ {
		parallel, err := Quantize(samples, pal, Options{WorkerCount: 4})
		if err != nil {
			t.Fatalf("parallel quantize: %v", err)
		}
		assertMatrix(t, parallel, serial)
	}

	for _, row := range serial {
		for _, id := range row {
			if !pal.Contains(id) {
				t.Fatalf("matrix contains %q which is not in the palette", id)
			}
		}
	}
}

func TestQuantizeFilteredPaletteStaysInSubset(t *testing.T) {
	t.Parallel()

	full := mustPalette(t,
		palette.NewColor("MARD:A1", "#FF0000", "Red", "MARD", "A1", ""),
		palette.NewColor("MARD:B1", "#E01010", "Dark red", "MARD", "B1", ""),
		palette.NewColor("MARD:B2", "#0000FF", "Blue", "MARD", "B2", ""),
	)
	subset := full.FilterSeries("B")

	img := solidImage(3, 3, color.NRGBA{R: 255, A: 255})
	fullMatrix := runPipeline(t, img, 3, full, Options{})
	if fullMatrix[0][0] != "MARD:A1" {
		t.Fatalf("expected exact match in full palette, got %s", fullMatrix[0][0])
	}

	matrix := runPipeline(t, img, 3, subset, Options{})
	for _, row := range matrix {
		for _, id := range row {
			if id != "MARD:B1" {
				t.Fatalf("expected subset color MARD:B1, got %s", id)
			}
		}
	}
}

func TestQuantizeTiesResolveToEarlierDuplicate(t *testing.T) {
	t.Parallel()

	pal := mustPalette(t,
		palette.Color{ID: "white", Hex: "#FFFFFF"},
		palette.Color{ID: "first", Hex: "#204080"},
		palette.Color{ID: "second", Hex: "#204080"},
	)
	img := solidImage(4, 4, color.NRGBA{R: 0x20, G: 0x40, B: 0x80, A: 255})

	matrix := runPipeline(t, img, 4, pal, Options{WorkerCount: 2})
	for _, row := range matrix {
		for _, id := range row {
			if id != "first" {
				t.Fatalf("expected first duplicate, got %s", id)
			}
		}
	}
}

func TestQuantizeTransparentCutoff(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 0})
	pal := mustPalette(t, palette.Color{ID: "A", Hex: "#FF0000"})

	withCutoff, err := Quantize(FromNRGBA(img), pal, Options{TransparentCutoff: 128})
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	assertMatrix(t, withCutoff, Matrix{{"A", NoColor}})

	withoutCutoff, err := Quantize(FromNRGBA(img), pal, Options{})
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	assertMatrix(t, withoutCutoff, Matrix{{"A", "A"}})
}

func TestCountColorsOrdersByUsage(t *testing.T) {
	t.Parallel()

	pal := mustPalette(t,
		palette.Color{ID: "A", Hex: "#000000"},
		palette.Color{ID: "B", Hex: "#FFFFFF"},
		palette.Color{ID: "C", Hex: "#FF0000"},
	)
	counts := CountColors(Matrix{{"C", "A", "C"}, {"A", NoColor, "B"}, {"C", "X", "B"}}, pal)

	want := []ColorCount{{ID: "C", Count: 3}, {ID: "A", Count: 2}, {ID: "B", Count: 2}, {ID: "X", Count: 1}}
	if len(counts) != len(want) {
		t.Fatalf("got %+v", counts)
	}
	for i := range want {
		if counts[i].ID != want[i].ID || counts[i].Count != want[i].Count {
			t.Fatalf("position %d: got %+v want %+v", i, counts[i], want[i])
		}
	}
	if counts[0].Hex != "#FF0000" {
		t.Fatalf("expected hex to be carried, got %q", counts[0].Hex)
	}
}

func TestMeasureExactMatchHasZeroError(t *testing.T) {
	t.Parallel()

	pal := mustPalette(t, palette.Color{ID: "A", Hex: "#FF0000"}, palette.Color{ID: "B", Hex: "#00FF00"})
	samples := FromNRGBA(solidImage(2, 2, color.NRGBA{R: 255, A: 255}))

	matrix, err := Quantize(samples, pal, Options{})
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	fidelity, err := Measure(samples, matrix, pal)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if fidelity.Cells != 4 || fidelity.MeanDeltaE != 0 || fidelity.MaxDeltaE != 0 || fidelity.MeanDeltaE2000 > 1e-6 {
		t.Fatalf("unexpected fidelity %+v", fidelity)
	}

	if _, err := Measure(samples, Matrix{{"A"}}, pal); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestNormalizeOptions(t *testing.T) {
	t.Parallel()

	normalized := NormalizeOptions(Options{Resampling: " Catmull-Rom ", WorkerCount: 1000, TransparentCutoff: -3})
	if normalized.Resampling != ResamplingCatmullRom {
		t.Fatalf("unexpected resampling %q", normalized.Resampling)
	}
	if normalized.WorkerCount < 1 || normalized.WorkerCount > maxWorkerCap {
		t.Fatalf("worker count not clamped: %d", normalized.WorkerCount)
	}
	if normalized.TransparentCutoff != 0 {
		t.Fatalf("expected cutoff clamp to 0, got %d", normalized.TransparentCutoff)
	}
	if NormalizeResampling("lanczos") != ResamplingBilinear {
		t.Fatal("expected unknown resampling to fall back to bilinear")
	}
}

func TestSplitRangeCoversAllRows(t *testing.T) {
	t.Parallel()

	for _, length := range []int{1, 7, 10, 33} {
		for workers := 1; workers <= length; workers++ {
			next := 0
			for worker := 0; worker < workers; worker++ {
				start, end := splitRange(length, workers, worker)
				if start != next || end < start {
					t.Fatalf("length %d workers %d worker %d: got [%d,%d) after %d", length, workers, worker, start, end, next)
				}
				next = end
			}
			if next != length {
				t.Fatalf("length %d workers %d: covered %d rows", length, workers, next)
			}
		}
	}
}

func runPipeline(t *testing.T, img image.Image, gridWidth int, pal palette.Palette, options Options) Matrix {
	t.Helper()

	samples, err := Downsample(img, gridWidth, options)
	if err != nil {
		t.Fatalf("downsample: %v", err)
	}
	matrix, err := Quantize(samples, pal, options)
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}

	return matrix
}

func mustPalette(t *testing.T, colors ...palette.Color) palette.Palette {
	t.Helper()

	pal, err := palette.New("test", colors)
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	return pal
}

func assertMatrix(t *testing.T, got Matrix, want Matrix) {
	t.Helper()

	if got.Height() != want.Height() || got.Width() != want.Width() {
		t.Fatalf("matrix is %dx%d, want %dx%d", got.Width(), got.Height(), want.Width(), want.Height())
	}
	for y := range want {
		for x := range want[y] {
			if got[y][x] != want[y][x] {
				t.Fatalf("cell %d,%d: got %q want %q", x, y, got[y][x], want[y][x])
			}
		}
	}
}

func solidImage(width int, height int, fill color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}

	return img
}

func gradientImage(width int, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: uint8((x + y) * 255 / (width + height)),
				A: 255,
			})
		}
	}

	return img
}
