package quantize

import (
	"beadgrid/internal/colorspace"
	"beadgrid/internal/palette"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

type ColorCount struct {
	ID    string `json:"id"`
	Hex   string `json:"hex"`
	Name  string `json:"name"`
	Code  string `json:"code,omitempty"`
	Count int    `json:"count"`
}

// CountColors tallies beads per color, most used first. Equal counts keep palette order; ids missing
// from pal come last in first-seen order.
func CountColors(matrix Matrix, pal palette.Palette) []ColorCount {
	tally := make(map[string]int)
	unknown := make([]string, 0)
	for _, row := range matrix {
		for _, id := range row {
			if id == NoColor {
				continue
			}
			if _, seen := tally[id]; !seen && !pal.Contains(id) {
				unknown = append(unknown, id)
			}
			tally[id]++
		}
	}

	counts := make([]ColorCount, 0, len(tally))
	for _, color := range pal.Colors {
		if count := tally[color.ID]; count > 0 {
			counts = append(counts, ColorCount{ID: color.ID, Hex: color.Hex, Name: color.Name, Code: color.Code, Count: count})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	for _, id := range unknown {
		counts = append(counts, ColorCount{ID: id, Count: tally[id]})
	}

	return counts
}

// Fidelity describes how far the chosen colors are from the samples. It is informational; the
// resolver always uses CIE76.
type Fidelity struct {
	Cells          int     `json:"cells"`
	MeanDeltaE     float64 `json:"meanDeltaE"`
	MaxDeltaE      float64 `json:"maxDeltaE"`
	MeanDeltaE2000 float64 `json:"meanDeltaE2000"`
}

func Measure(samples Samples, matrix Matrix, pal palette.Palette) (Fidelity, error) {
	if err := samples.Validate(); err != nil {
		return Fidelity{}, err
	}
	if matrix.Width() != samples.Width || matrix.Height() != samples.Height {
		return Fidelity{}, fmt.Errorf("matrix is %dx%d, samples are %dx%d", matrix.Width(), matrix.Height(), samples.Width, samples.Height)
	}
	if pal.Empty() {
		return Fidelity{}, palette.ErrEmptyPalette
	}

	type target struct {
		lab      colorspace.Lab
		colorful colorful.Color
	}
	targets := make(map[string]target, pal.Len())
	for _, color := range pal.Colors {
		rgb := colorspace.HexToRGB(color.Hex)
		targets[color.ID] = target{lab: colorspace.RGBToLab(rgb), colorful: toColorful(rgb)}
	}

	var fidelity Fidelity
	var sum76, sum2000 float64
	for y, row := range matrix {
		for x, id := range row {
			if id == NoColor {
				continue
			}
			chosen, ok := targets[id]
			if !ok {
				return Fidelity{}, errors.New("matrix references a color outside the palette: " + id)
			}

			rgb, _ := samples.At(x, y)
			d76 := colorspace.DeltaE(colorspace.RGBToLab(rgb), chosen.lab)
			sum76 += d76
			sum2000 += toColorful(rgb).DistanceCIEDE2000(chosen.colorful)
			fidelity.MaxDeltaE = math.Max(fidelity.MaxDeltaE, d76)
			fidelity.Cells++
		}
	}

	if fidelity.Cells > 0 {
		fidelity.MeanDeltaE = sum76 / float64(fidelity.Cells)
		fidelity.MeanDeltaE2000 = sum2000 / float64(fidelity.Cells)
	}

	return fidelity, nil
}

func toColorful(rgb colorspace.RGB) colorful.Color {
	return colorful.Color{
		R: float64(rgb.R) / 255.0,
		G: float64(rgb.G) / 255.0,
		B: float64(rgb.B) / 255.0,
	}
}
