package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds the decoded size of an input image.
const MaxPixels = 64 * 1024 * 1024

var ErrEmptyImage = errors.New("image data is empty")

var ErrImageTooLarge = errors.New("image is too large")

// Decoded is a decoded input image and the format it was stored in.
type Decoded struct {
	Image  image.Image
	Format string
	Width  int
	Height int
}

// Decode reads PNG, JPEG, GIF, WebP, TIFF, BMP and AVIF data.
func Decode(data []byte) (Decoded, error) {
	if len(data) == 0 {
		return Decoded{}, ErrEmptyImage
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Decoded{}, fmt.Errorf("decode image header: %w", err)
	}
	if config.Width <= 0 || config.Height <= 0 {
		return Decoded{}, fmt.Errorf("decode image: %s image has no pixels", format)
	}
	if config.Width*config.Height > MaxPixels {
		return Decoded{}, fmt.Errorf("%dx%d %s image: %w", config.Width, config.Height, format, ErrImageTooLarge)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Decoded{}, fmt.Errorf("decode %s image: %w", format, err)
	}

	bounds := img.Bounds()
	return Decoded{Image: img, Format: format, Width: bounds.Dx(), Height: bounds.Dy()}, nil
}
