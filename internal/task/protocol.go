package task

import (
	"beadgrid/internal/palette"
	"beadgrid/internal/quantize"
	"errors"
	"fmt"
)

// Request is one quantization job. Pixels is the downsampled RGBA buffer (GridWidth*GridHeight*4
// bytes); once submitted the runner owns it and the caller must not write to it again.
type Request struct {
	ID         uint64           `json:"id"`
	Pixels     []byte           `json:"-"`
	GridWidth  int              `json:"gridWidth"`
	GridHeight int              `json:"gridHeight"`
	Palette    palette.Palette  `json:"palette"`
	Options    quantize.Options `json:"options"`
}

// Response carries either Matrix or Error, never both.
type Response struct {
	ID     uint64          `json:"id"`
	Matrix quantize.Matrix `json:"matrix,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func (r Response) Failed() bool {
	return r.Error != ""
}

func (r Request) Validate() error {
	if r.GridWidth < 1 {
		return fmt.Errorf("grid width %d: %w", r.GridWidth, quantize.ErrInvalidGridWidth)
	}
	if r.GridHeight < 1 {
		return fmt.Errorf("grid height must be a positive integer, got %d", r.GridHeight)
	}
	if err := quantize.CheckGridSize(r.GridWidth, r.GridHeight); err != nil {
		return err
	}
	if want := r.GridWidth * r.GridHeight * 4; len(r.Pixels) != want {
		return fmt.Errorf("pixel buffer holds %d bytes, want %d for a %dx%d grid", len(r.Pixels), want, r.GridWidth, r.GridHeight)
	}
	if r.Palette.Empty() {
		return fmt.Errorf("palette %q: %w", r.Palette.Name, palette.ErrEmptyPalette)
	}

	return nil
}

func (r Request) samples() quantize.Samples {
	return quantize.Samples{Width: r.GridWidth, Height: r.GridHeight, Pix: r.Pixels}
}

func failure(id uint64, err error) Response {
	message := "quantization failed"
	if err != nil {
		message = err.Error()
	}

	return Response{ID: id, Error: message}
}

// ErrorFromResponse turns a failed response back into an error; nil on success.
func ErrorFromResponse(response Response) error {
	if !response.Failed() {
		return nil
	}

	return errors.New(response.Error)
}
