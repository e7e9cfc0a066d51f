package imaging

import (
	"beadgrid/internal/colorspace"
	"beadgrid/internal/palette"
	"beadgrid/internal/quantize"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/gen2brain/avif"
)

const FormatPNG = "png"

const FormatJPEG = "jpeg"

const FormatAVIF = "avif"

const (
	DefaultCellSize = 12
	MaxCellSize     = 64
)

func NormalizeFormat(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", FormatPNG:
		return FormatPNG
	case FormatJPEG, "jpg":
		return FormatJPEG
	case FormatAVIF:
		return FormatAVIF
	default:
		return FormatPNG
	}
}

func FormatExtension(format string) string {
	switch NormalizeFormat(format) {
	case FormatJPEG:
		return ".jpg"
	case FormatAVIF:
		return ".avif"
	default:
		return ".png"
	}
}

// Render draws a pattern with one cellSize square per bead. Cells without a color, and cells whose
// id is not in pal, stay transparent.
func Render(matrix quantize.Matrix, pal palette.Palette, cellSize int) (*image.NRGBA, error) {
	if matrix.Width() == 0 || matrix.Height() == 0 {
		return nil, fmt.Errorf("render pattern: matrix is empty")
	}
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	if cellSize > MaxCellSize {
		cellSize = MaxCellSize
	}
	cellSize = fitCellSize(matrix.Width(), matrix.Height(), cellSize)

	fills := make(map[string]color.NRGBA, pal.Len())
	for _, item := range pal.Colors {
		rgb := colorspace.HexToRGB(item.Hex)
		fills[item.ID] = color.NRGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, matrix.Width()*cellSize, matrix.Height()*cellSize))
	for y, row := range matrix {
		for x, id := range row {
			fill, ok := fills[id]
			if !ok {
				continue
			}
			for py := y * cellSize; py < (y+1)*cellSize; py++ {
				offset := canvas.PixOffset(x*cellSize, py)
				for px := 0; px < cellSize; px++ {
					canvas.Pix[offset] = fill.R
					canvas.Pix[offset+1] = fill.G
					canvas.Pix[offset+2] = fill.B
					canvas.Pix[offset+3] = fill.A
					offset += 4
				}
			}
		}
	}

	return canvas, nil
}

// fitCellSize shrinks cellSize until the rendered canvas stays within MaxPixels, down to one pixel
// per cell.
func fitCellSize(width int, height int, cellSize int) int {
	for cellSize > 1 && width*height*cellSize*cellSize > MaxPixels {
		cellSize--
	}

	return cellSize
}

func Encode(w io.Writer, img image.Image, format string) error {
	var err error
	switch NormalizeFormat(format) {
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 92})
	case FormatAVIF:
		err = avif.Encode(w, img, avif.Options{Quality: 80, Speed: 8})
	default:
		err = png.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", NormalizeFormat(format), err)
	}

	return nil
}
