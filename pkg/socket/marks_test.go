package socket

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/akrolimb/socketlab/pkg/voxel"
)

// testGrids builds a solid inner block with a dilated outer around it,
// mirroring the shapes the offset stage produces.
func testGrids(t *testing.T) (inner, outer *voxel.Grid) {
	t.Helper()
	inner = voxel.NewGrid([3]int{40, 40, 40}, v3.Vec{}, 1.0)
	for x := 12; x <= 27; x++ {
		for y := 12; y <= 27; y++ {
			for z := 12; z <= 27; z++ {
				inner.Set(x, y, z, true)
			}
		}
	}
	outer = voxel.Dilate(inner, 3)
	return inner, outer
}

func outerContainsInner(inner, outer *voxel.Grid) bool {
	for i, c := range inner.Cells {
		if c && !outer.Cells[i] {
			return false
		}
	}
	return true
}

func TestApplyMarkTrim(t *testing.T) {
	inner, outer := testGrids(t)
	center := inner.Center(20, 20, 27)
	ApplyMarks(inner, outer, []Mark{
		{Type: MarkTrim, Center: center, RadiusMM: 4},
	})

	// Everything inside the sphere is void in both grids.
	cell := inner.WorldToCell(center)
	if inner.At(cell[0], cell[1], cell[2]) || outer.At(cell[0], cell[1], cell[2]) {
		t.Error("trim left the sphere center occupied")
	}
	if inner.At(cell[0]+2, cell[1], cell[2]) {
		t.Error("trim left a cell 2mm from center occupied")
	}
	// Cells outside the sphere are untouched.
	if !inner.At(12, 12, 12) {
		t.Error("trim cleared a cell outside its sphere")
	}
}

func TestApplyMarkPadKeepsOuterSuperset(t *testing.T) {
	inner, outer := testGrids(t)
	before := inner.Count()
	center := inner.Center(20, 20, 27) // on the top face of the block
	ApplyMarks(inner, outer, []Mark{
		{Type: MarkPad, Center: center, RadiusMM: 5, AmountMM: 2},
	})

	if inner.Count() <= before {
		t.Errorf("pad did not grow the inner occupancy: %d -> %d", before, inner.Count())
	}
	if !outerContainsInner(inner, outer) {
		t.Error("outer no longer contains inner after pad")
	}
	// The edit is confined to the sphere.
	if inner.At(20, 20, 33) {
		t.Error("pad grew cells outside its sphere")
	}
}

func TestApplyMarkRelief(t *testing.T) {
	inner, outer := testGrids(t)
	before := inner.Count()
	center := inner.Center(20, 20, 27)
	ApplyMarks(inner, outer, []Mark{
		{Type: MarkRelief, Center: center, RadiusMM: 5, AmountMM: 2},
	})

	if inner.Count() >= before {
		t.Errorf("relief did not shrink the inner occupancy: %d -> %d", before, inner.Count())
	}
	if !outerContainsInner(inner, outer) {
		t.Error("outer no longer contains inner after relief")
	}
	// Deep interior cells away from the sphere survive.
	if !inner.At(14, 14, 14) {
		t.Error("relief reached outside its sphere")
	}
}

func TestApplyMarksOrderAndSkip(t *testing.T) {
	inner, outer := testGrids(t)
	center := inner.Center(20, 20, 27)

	// A malformed mark in the middle must not stop the rest of the list.
	ApplyMarks(inner, outer, []Mark{
		{Type: MarkPad, Center: center, RadiusMM: 5, AmountMM: 2},
		{Type: "bogus", Center: center, RadiusMM: 5, AmountMM: 2},
		{Type: MarkTrim, Center: center, RadiusMM: 4},
	})

	// The later trim wins over the earlier pad at the shared center.
	cell := inner.WorldToCell(center)
	if inner.At(cell[0], cell[1], cell[2]) {
		t.Error("later trim did not override earlier pad")
	}
}

func TestApplyMarkOutsideGrid(t *testing.T) {
	inner, outer := testGrids(t)
	before := inner.Count()
	ApplyMarks(inner, outer, []Mark{
		{Type: MarkTrim, Center: v3.Vec{X: 500, Y: 500, Z: 500}, RadiusMM: 5},
	})
	if inner.Count() != before {
		t.Error("out-of-grid mark edited the occupancy")
	}
}
