package colorspace

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// D65 reference white, 2° observer.
const (
	whiteX = 95.047
	whiteY = 100.000
	whiteZ = 108.883
)

const (
	gammaThreshold = 0.04045
	labThreshold   = 0.008856
)

const FallbackHex = "#000000"

type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

type Lab struct {
	L float64 `json:"l"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// HexToRGB parses "#RRGGBB" or "RRGGBB" in any case. Malformed input yields black.
func HexToRGB(value string) RGB {
	rgb, ok := parseHex(value)
	if !ok {
		return RGB{}
	}

	return rgb
}

// NormalizeHex returns the uppercase "#RRGGBB" form of value, or FallbackHex when value is malformed.
func NormalizeHex(value string) string {
	rgb, ok := parseHex(value)
	if !ok {
		return FallbackHex
	}

	return rgb.Hex()
}

// ValidHex reports whether value parses without falling back.
func ValidHex(value string) bool {
	_, ok := parseHex(value)
	return ok
}

func parseHex(value string) (RGB, bool) {
	digits := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(digits) != 6 {
		return RGB{}, false
	}

	decoded, err := hex.DecodeString(digits)
	if err != nil {
		return RGB{}, false
	}

	return RGB{R: decoded[0], G: decoded[1], B: decoded[2]}, true
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// RGBToLab converts an sRGB triple to CIE L*a*b* under D65.
func RGBToLab(c RGB) Lab {
	r := srgb8ToLinear(c.R)
	g := srgb8ToLinear(c.G)
	b := srgb8ToLinear(c.B)

	x := (r*0.4124 + g*0.3576 + b*0.1805) * 100 / whiteX
	y := (r*0.2126 + g*0.7152 + b*0.0722) * 100 / whiteY
	z := (r*0.0193 + g*0.1192 + b*0.9505) * 100 / whiteZ

	fx := labCompand(x)
	fy := labCompand(y)
	fz := labCompand(z)

	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

// DeltaE is the CIE76 color difference.
func DeltaE(left Lab, right Lab) float64 {
	return math.Sqrt(DistanceSquared(left, right))
}

// DistanceSquared orders colors the same way DeltaE does without the square root.
func DistanceSquared(left Lab, right Lab) float64 {
	dl := left.L - right.L
	da := left.A - right.A
	db := left.B - right.B
	return dl*dl + da*da + db*db
}

func srgb8ToLinear(channel uint8) float64 {
	value := float64(channel) / 255
	if value > gammaThreshold {
		return math.Pow((value+0.055)/1.055, 2.4)
	}

	return value / 12.92
}

func labCompand(t float64) float64 {
	if t > labThreshold {
		return math.Cbrt(t)
	}

	return 7.787*t + 16.0/116.0
}
