package quantize

import (
	"beadgrid/internal/colorspace"
	"beadgrid/internal/palette"
	"fmt"
	"sync"
)

// NoColor marks an empty cell. Palette ids are never empty, so it cannot collide with one.
const NoColor = ""

// Matrix holds palette color ids, row-major: Matrix[row][column].
type Matrix [][]string

func NewMatrix(width int, height int) Matrix {
	cells := make([]string, width*height)
	matrix := make(Matrix, height)
	for y := range matrix {
		matrix[y] = cells[y*width : (y+1)*width : (y+1)*width]
	}

	return matrix
}

func (m Matrix) Width() int {
	if len(m) == 0 {
		return 0
	}

	return len(m[0])
}

func (m Matrix) Height() int {
	return len(m)
}

func (m Matrix) Clone() Matrix {
	clone := NewMatrix(m.Width(), m.Height())
	for y, row := range m {
		copy(clone[y], row)
	}

	return clone
}

// Quantize maps every sample to the perceptually closest palette color. The palette index is built
// once per call; rows are split across workers, which does not change the result.
func Quantize(samples Samples, pal palette.Palette, options Options) (matrix Matrix, err error) {
	defer recoverAsError(&err, "quantize")

	if err := samples.Validate(); err != nil {
		return nil, err
	}

	index, err := palette.BuildLabIndex(pal)
	if err != nil {
		return nil, fmt.Errorf("build palette index: %w", err)
	}

	normalized := options.normalized()
	matrix = NewMatrix(samples.Width, samples.Height)
	workers := clampInt(normalized.WorkerCount, 1, samples.Height)

	if workers == 1 {
		if err := quantizeRows(samples, index, normalized, matrix, 0, samples.Height); err != nil {
			return nil, err
		}
		return matrix, nil
	}

	errs := make([]error, workers)
	var wg sync.WaitGroup
	for worker := 0; worker < workers; worker++ {
		startY, endY := splitRange(samples.Height, workers, worker)
		wg.Add(1)
		go func(workerIndex, start, end int) {
			defer wg.Done()
			defer recoverAsError(&errs[workerIndex], "quantize rows")
			errs[workerIndex] = quantizeRows(samples, index, normalized, matrix, start, end)
		}(worker, startY, endY)
	}

	wg.Wait()

	for _, workerErr := range errs {
		if workerErr != nil {
			return nil, workerErr
		}
	}

	return matrix, nil
}

func quantizeRows(samples Samples, index *palette.LabIndex, options Options, matrix Matrix, start int, end int) error {
	for y := start; y < end; y++ {
		row := matrix[y]
		rowOffset := y * samples.Width * 4
		for x := 0; x < samples.Width; x++ {
			offset := rowOffset + x*4
			if options.TransparentCutoff > 0 && int(samples.Pix[offset+3]) < options.TransparentCutoff {
				row[x] = NoColor
				continue
			}

			id, err := index.FindClosest(colorspace.RGBToLab(colorspace.RGB{
				R: samples.Pix[offset],
				G: samples.Pix[offset+1],
				B: samples.Pix[offset+2],
			}))
			if err != nil {
				return fmt.Errorf("resolve cell %d,%d: %w", x, y, err)
			}
			row[x] = id
		}
	}

	return nil
}
