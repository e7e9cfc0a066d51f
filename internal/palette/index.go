package palette

import (
	"beadgrid/internal/colorspace"
	"math"
)

type LabColor struct {
	ID string
	L  float64
	A  float64
	B  float64
}

func (c LabColor) Lab() colorspace.Lab {
	return colorspace.Lab{L: c.L, A: c.A, B: c.B}
}

// LabIndex is the per-run lookup table for one palette. It is built from scratch for every
// quantization run and must not be shared between palettes.
type LabIndex struct {
	entries []LabColor
}

func BuildLabIndex(p Palette) (*LabIndex, error) {
	if p.Empty() {
		return nil, ErrEmptyPalette
	}

	entries := make([]LabColor, len(p.Colors))
	for index, color := range p.Colors {
		lab := colorspace.RGBToLab(colorspace.HexToRGB(color.Hex))
		entries[index] = LabColor{ID: color.ID, L: lab.L, A: lab.A, B: lab.B}
	}

	return &LabIndex{entries: entries}, nil
}

func (x *LabIndex) Len() int {
	if x == nil {
		return 0
	}

	return len(x.entries)
}

func (x *LabIndex) Entries() []LabColor {
	if x == nil {
		return nil
	}

	entries := make([]LabColor, len(x.entries))
	copy(entries, x.entries)
	return entries
}

// FindClosest returns the id of the entry nearest to target. The first entry wins exact ties.
func (x *LabIndex) FindClosest(target colorspace.Lab) (string, error) {
	if x.Len() == 0 {
		return "", ErrEmptyPalette
	}

	bestID := ""
	bestDistance := math.Inf(1)
	for _, entry := range x.entries {
		dl := target.L - entry.L
		da := target.A - entry.A
		db := target.B - entry.B
		distance := dl*dl + da*da + db*db
		if distance < bestDistance {
			bestDistance = distance
			bestID = entry.ID
		}
	}

	return bestID, nil
}

// FindClosestRGB converts rgb and resolves it.
func (x *LabIndex) FindClosestRGB(rgb colorspace.RGB) (string, error) {
	return x.FindClosest(colorspace.RGBToLab(rgb))
}
