package imaging

import (
	"beadgrid/internal/palette"
	"beadgrid/internal/quantize"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func TestDecodeStandardFormats(t *testing.T) {
	t.Parallel()

	source := image.NewNRGBA(image.Rect(0, 0, 5, 3))
	for index := range source.Pix {
		source.Pix[index] = 200
	}

	encoders := map[string]func(*bytes.Buffer) error{
		"png":  func(buf *bytes.Buffer) error { return png.Encode(buf, source) },
		"jpeg": func(buf *bytes.Buffer) error { return jpeg.Encode(buf, source, nil) },
		"gif":  func(buf *bytes.Buffer) error { return gif.Encode(buf, source, nil) },
	}

	for format, encode := range encoders {
		var buf bytes.Buffer
		if err := encode(&buf); err != nil {
			t.Fatalf("%s: encode: %v", format, err)
		}

		decoded, err := Decode(buf.Bytes())
		if err != nil {
			t.Fatalf("%s: decode: %v", format, err)
		}
		if decoded.Format != format || decoded.Width != 5 || decoded.Height != 3 {
			t.Fatalf("%s: unexpected decode result %+v", format, decoded)
		}
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := Decode(nil); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
	if _, err := Decode([]byte("definitely not an image")); err == nil || !strings.Contains(err.Error(), "decode image header") {
		t.Fatalf("expected header error, got %v", err)
	}
}

func TestRenderPattern(t *testing.T) {
	t.Parallel()

	pal, err := palette.New("test", []palette.Color{
		{ID: "R", Hex: "#FF0000"},
		{ID: "B", Hex: "#0000FF"},
	})
	if err != nil {
		t.Fatalf("new palette: %v", err)
	}

	canvas, err := Render(quantize.Matrix{{"R", "B"}, {quantize.NoColor, "R"}}, pal, 3)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if canvas.Bounds().Dx() != 6 || canvas.Bounds().Dy() != 6 {
		t.Fatalf("unexpected canvas size %v", canvas.Bounds())
	}

	checks := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 0, color.NRGBA{R: 255, A: 255}},
		{5, 2, color.NRGBA{B: 255, A: 255}},
		{1, 4, color.NRGBA{}},
		{4, 5, color.NRGBA{R: 255, A: 255}},
	}
	for _, check := range checks {
		if got := canvas.NRGBAAt(check.x, check.y); got != check.want {
			t.Fatalf("pixel (%d,%d) = %+v, want %+v", check.x, check.y, got, check.want)
		}
	}

	if _, err := Render(nil, pal, 3); err == nil {
		t.Fatal("expected empty matrix error")
	}
}

func TestRenderShrinksCellsForLargeGrids(t *testing.T) {
	t.Parallel()

	if got := fitCellSize(4, 4, 12); got != 12 {
		t.Fatalf("small grid should keep its cell size, got %d", got)
	}
	if got := fitCellSize(1024, 1024, MaxCellSize); got*got*1024*1024 > MaxPixels || got < 1 {
		t.Fatalf("cell size %d overflows the pixel limit", got)
	}
	if got := fitCellSize(4096, 4096, 8); got != 1 {
		t.Fatalf("expected one pixel per cell, got %d", got)
	}
}

func TestEncodeRoundTripsThroughDecode(t *testing.T) {
	t.Parallel()

	source := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for index := range source.Pix {
		source.Pix[index] = 255
	}

	var buf bytes.Buffer
	if err := Encode(&buf, source, "PNG"); err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(buf.Bytes())
	if err != nil || decoded.Format != "png" {
		t.Fatalf("decode encoded png: %+v %v", decoded, err)
	}
}

func TestNormalizeFormat(t *testing.T) {
	t.Parallel()

	cases := map[string]string{"": FormatPNG, "JPG": FormatJPEG, " avif ": FormatAVIF, "tiff": FormatPNG}
	for input, want := range cases {
		if got := NormalizeFormat(input); got != want {
			t.Fatalf("NormalizeFormat(%q) = %q, want %q", input, got, want)
		}
	}
	if FormatExtension("jpeg") != ".jpg" {
		t.Fatalf("unexpected jpeg extension %q", FormatExtension("jpeg"))
	}
}
