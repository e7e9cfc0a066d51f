package palette

import (
	"beadgrid/internal/colorspace"
	"errors"
	"testing"
)

func TestBuildLabIndexPreservesOrder(t *testing.T) {
	t.Parallel()

	p, _ := New("P", []Color{
		{ID: "white", Hex: "#FFFFFF"},
		{ID: "black", Hex: "#000000"},
		{ID: "red", Hex: "#FF0000"},
	})

	index, err := BuildLabIndex(p)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	entries := index.Entries()
	if len(entries) != 3 || entries[0].ID != "white" || entries[1].ID != "black" || entries[2].ID != "red" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].L != 0 {
		t.Fatalf("expected black L=0, got %f", entries[1].L)
	}
}

func TestBuildLabIndexRejectsEmptyPalette(t *testing.T) {
	t.Parallel()

	if _, err := BuildLabIndex(Palette{Name: "none"}); !errors.Is(err, ErrEmptyPalette) {
		t.Fatalf("expected ErrEmptyPalette, got %v", err)
	}

	var index *LabIndex
	if _, err := index.FindClosest(colorspace.Lab{}); !errors.Is(err, ErrEmptyPalette) {
		t.Fatalf("expected ErrEmptyPalette from nil index, got %v", err)
	}
}

func TestFindClosestPicksNearest(t *testing.T) {
	t.Parallel()

	p, _ := New("P", []Color{
		{ID: "A", Hex: "#FF0000"},
		{ID: "B", Hex: "#00FF00"},
		{ID: "C", Hex: "#0000FF"},
	})
	index, _ := BuildLabIndex(p)

	tests := []struct {
		rgb  colorspace.RGB
		want string
	}{
		{colorspace.RGB{R: 250, G: 10, B: 5}, "A"},
		{colorspace.RGB{R: 20, G: 230, B: 40}, "B"},
		{colorspace.RGB{R: 10, G: 20, B: 200}, "C"},
	}
	for _, tc := range tests {
		got, err := index.FindClosestRGB(tc.rgb)
		if err != nil {
			t.Fatalf("find closest: %v", err)
		}
		if got != tc.want {
			t.Fatalf("%+v: got %s want %s", tc.rgb, got, tc.want)
		}
	}
}

func TestFindClosestFirstEntryWinsTies(t *testing.T) {
	t.Parallel()

	p, _ := New("P", []Color{
		{ID: "far", Hex: "#FFFFFF"},
		{ID: "first", Hex: "#336699"},
		{ID: "second", Hex: "#336699"},
	})
	index, _ := BuildLabIndex(p)

	for _, rgb := range []colorspace.RGB{{R: 0x33, G: 0x66, B: 0x99}, {R: 0x30, G: 0x60, B: 0x90}, {}} {
		got, err := index.FindClosestRGB(rgb)
		if err != nil {
			t.Fatalf("find closest: %v", err)
		}
		if got != "first" {
			t.Fatalf("%+v: expected first duplicate to win, got %s", rgb, got)
		}
	}
}

func TestSingleEntryAlwaysWins(t *testing.T) {
	t.Parallel()

	p, _ := New("P", []Color{{ID: "A", Hex: "#0000FF"}})
	index, _ := BuildLabIndex(p)

	got, err := index.FindClosestRGB(colorspace.RGB{R: 255})
	if err != nil || got != "A" {
		t.Fatalf("expected A, got %q (%v)", got, err)
	}
}
