package quantize

import (
	"beadgrid/internal/colorspace"
	"errors"
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

var ErrInvalidGridWidth = errors.New("grid width must be a positive integer")

var ErrGridTooLarge = errors.New("grid is too large")

// Output grid bounds, independent of the input image size.
const (
	MaxGridWidth = 1024
	MaxGridCells = 1 << 20
)

// CheckGridSize reports ErrGridTooLarge for grids beyond MaxGridWidth or MaxGridCells.
func CheckGridSize(width int, height int) error {
	if width > MaxGridWidth {
		return fmt.Errorf("grid width %d exceeds %d: %w", width, MaxGridWidth, ErrGridTooLarge)
	}
	if height > MaxGridCells || width*height > MaxGridCells {
		return fmt.Errorf("%dx%d grid exceeds %d cells: %w", width, height, MaxGridCells, ErrGridTooLarge)
	}

	return nil
}

// Samples is a raw RGBA buffer holding one pixel per grid cell, row-major, 4 bytes per cell.
type Samples struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Pix    []uint8 `json:"pix"`
}

func (s Samples) Validate() error {
	if s.Width < 1 || s.Height < 1 {
		return fmt.Errorf("invalid sample grid %dx%d", s.Width, s.Height)
	}
	if err := CheckGridSize(s.Width, s.Height); err != nil {
		return err
	}
	if want := s.Width * s.Height * 4; len(s.Pix) != want {
		return fmt.Errorf("sample buffer holds %d bytes, want %d for %dx%d", len(s.Pix), want, s.Width, s.Height)
	}

	return nil
}

// At returns the color and alpha of cell (x, y). It does not bounds-check.
func (s Samples) At(x int, y int) (colorspace.RGB, uint8) {
	offset := (y*s.Width + x) * 4
	return colorspace.RGB{R: s.Pix[offset], G: s.Pix[offset+1], B: s.Pix[offset+2]}, s.Pix[offset+3]
}

// GridHeight keeps the source aspect ratio: round(gridWidth * sourceHeight / sourceWidth), at least 1.
func GridHeight(gridWidth int, sourceWidth int, sourceHeight int) int {
	if gridWidth < 1 || sourceWidth < 1 || sourceHeight < 1 {
		return 1
	}

	height := int(math.Round(float64(gridWidth) * float64(sourceHeight) / float64(sourceWidth)))
	return maxInt(height, 1)
}

// Downsample draws img scaled to gridWidth x GridHeight cells in a single resampling pass and reads
// back one sample per cell.
func Downsample(img image.Image, gridWidth int, options Options) (samples Samples, err error) {
	defer recoverAsError(&err, "downsample image")

	if gridWidth < 1 {
		return Samples{}, ErrInvalidGridWidth
	}
	if img == nil {
		return Samples{}, errors.New("image is required")
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return Samples{}, errors.New("image has no pixels")
	}

	normalized := options.normalized()
	gridHeight := GridHeight(gridWidth, bounds.Dx(), bounds.Dy())
	if err := CheckGridSize(gridWidth, gridHeight); err != nil {
		return Samples{}, err
	}

	dst := image.NewNRGBA(image.Rect(0, 0, gridWidth, gridHeight))
	interpolator(normalized.Resampling).Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)

	return Samples{Width: gridWidth, Height: gridHeight, Pix: dst.Pix}, nil
}

// FromNRGBA wraps an image that is already at grid resolution.
func FromNRGBA(img *image.NRGBA) Samples {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	pix := make([]uint8, width*height*4)
	for y := 0; y < height; y++ {
		sourceOffset := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(pix[y*width*4:(y+1)*width*4], img.Pix[sourceOffset:sourceOffset+width*4])
	}

	return Samples{Width: width, Height: height, Pix: pix}
}

func interpolator(resampling string) xdraw.Interpolator {
	switch resampling {
	case ResamplingApproxBilinear:
		return xdraw.ApproxBiLinear
	case ResamplingNearest:
		return xdraw.NearestNeighbor
	case ResamplingCatmullRom:
		return xdraw.CatmullRom
	default:
		return xdraw.BiLinear
	}
}

func recoverAsError(err *error, stage string) {
	if recovered := recover(); recovered != nil {
		*err = fmt.Errorf("%s: panic: %v", stage, recovered)
	}
}
