package socket

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/akrolimb/socketlab/pkg/geom"
	"github.com/akrolimb/socketlab/pkg/voxel"
)

func cubeMesh(s float64) *geom.Mesh {
	verts := []v3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: s, Y: 0, Z: 0}, {X: s, Y: s, Z: 0}, {X: 0, Y: s, Z: 0},
		{X: 0, Y: 0, Z: s}, {X: s, Y: 0, Z: s}, {X: s, Y: s, Z: s}, {X: 0, Y: s, Z: s},
	}
	faces := [][3]int{
		{0, 2, 1}, {0, 3, 2},
		{4, 5, 6}, {4, 6, 7},
		{0, 1, 5}, {0, 5, 4},
		{2, 3, 7}, {2, 7, 6},
		{1, 2, 6}, {1, 6, 5},
		{3, 0, 4}, {3, 4, 7},
	}
	return &geom.Mesh{Vertices: verts, Faces: faces}
}

func TestRadiusVoxels(t *testing.T) {
	tests := []struct {
		mm, pitch float64
		want      int
	}{
		{2.5, 0.5, 5},
		{4.0, 0.5, 8},
		{2.5, 1.0, 3}, // rounds half away from zero
		{0.1, 1.0, 1}, // never below one voxel
		{-3.0, 1.0, 3},
	}
	for _, tt := range tests {
		if got := radiusVoxels(tt.mm, tt.pitch); got != tt.want {
			t.Errorf("radiusVoxels(%g, %g) = %d, want %d", tt.mm, tt.pitch, got, tt.want)
		}
	}
}

func TestOffsetGrids(t *testing.T) {
	base := voxel.NewGrid([3]int{10, 10, 10}, v3.Vec{}, 1.0)
	for x := 3; x <= 6; x++ {
		for y := 3; y <= 6; y++ {
			for z := 3; z <= 6; z++ {
				base.Set(x, y, z, true)
			}
		}
	}

	inner, outer, shell := offsetGrids(base, 2.5, 4.0)
	if inner.Dims != outer.Dims || inner.Dims != shell.Dims {
		t.Fatal("offset grids disagree on dims")
	}
	if !outerContainsInner(inner, outer) {
		t.Error("outer does not contain inner")
	}
	if inner.Count() <= base.Count() {
		t.Errorf("inner (%d cells) did not grow past the base (%d)", inner.Count(), base.Count())
	}
	if outer.Count() <= inner.Count() {
		t.Errorf("outer (%d cells) did not grow past inner (%d)", outer.Count(), inner.Count())
	}
	if shell.Empty() {
		t.Fatal("shell band is empty")
	}
	// Shell is exactly outer minus inner.
	for i := range shell.Cells {
		want := outer.Cells[i] && !inner.Cells[i]
		if shell.Cells[i] != want {
			t.Fatal("shell is not outer AND NOT inner")
		}
	}
}

func TestShellBetweenFallback(t *testing.T) {
	// Identical grids leave no band; the fallback peels one voxel off the
	// outer boundary instead of returning nothing.
	g := voxel.NewGrid([3]int{12, 12, 12}, v3.Vec{}, 1.0)
	for x := 4; x <= 8; x++ {
		for y := 4; y <= 8; y++ {
			for z := 4; z <= 8; z++ {
				g.Set(x, y, z, true)
			}
		}
	}
	shell := shellBetween(g, g.Clone())
	if shell.Empty() {
		t.Fatal("fallback shell is empty")
	}
	if shell.Count() >= g.Count() {
		t.Errorf("fallback shell (%d cells) should be a boundary subset of %d", shell.Count(), g.Count())
	}
}

func TestMakeShell(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline run")
	}
	limb := cubeMesh(120)
	voxelMM := 1.0
	trimZ := 60.0
	plan := DefaultPlan()
	plan.VoxelMM = &voxelMM
	plan.TrimZMM = &trimZ

	res, err := MakeShell(limb, plan)
	if err != nil {
		t.Fatalf("MakeShell: %v", err)
	}
	if res.PitchMM != 1.0 {
		t.Errorf("PitchMM = %g, want 1.0", res.PitchMM)
	}
	for name, m := range map[string]*geom.Mesh{
		"inner": res.Inner, "outer": res.Outer, "shell": res.Shell, "trimmed": res.Trimmed,
	} {
		if m.IsEmpty() {
			t.Fatalf("%s mesh is empty", name)
		}
	}

	// Both offset surfaces enclose material.
	if vol := res.Inner.SignedVolume(); vol <= 0 {
		t.Errorf("inner volume = %g, want > 0", vol)
	}
	if vol := res.Outer.SignedVolume(); vol <= 0 {
		t.Errorf("outer volume = %g, want > 0", vol)
	}
	// The outer surface extends past the inner one by the wall offset.
	innerMin, innerMax := res.Inner.BoundingBox()
	outerMin, outerMax := res.Outer.BoundingBox()
	if outerMin.X >= innerMin.X || outerMax.X <= innerMax.X ||
		outerMin.Z >= innerMin.Z {
		t.Errorf("outer bbox [%+v %+v] does not extend past inner [%+v %+v]",
			outerMin, outerMax, innerMin, innerMax)
	}

	// The trim cut everything above the requested height, within a couple
	// of voxel layers.
	_, max := res.Trimmed.BoundingBox()
	if max.Z > trimZ+3 {
		t.Errorf("trimmed mesh reaches z=%g, want <= %g", max.Z, trimZ+3)
	}

	if res.Stats.Faces != res.Trimmed.TriangleCount() {
		t.Errorf("Stats.Faces = %d, want %d", res.Stats.Faces, res.Trimmed.TriangleCount())
	}
	if res.Stats.BBoxMM != [3]float64{120, 120, 120} {
		t.Errorf("Stats.BBoxMM = %v", res.Stats.BBoxMM)
	}
	if res.Stats.VolumeCM3 == nil || *res.Stats.VolumeCM3 <= 0 {
		t.Error("Stats.VolumeCM3 missing or non-positive")
	}
}

func TestMakeShellEmptyLimb(t *testing.T) {
	if _, err := MakeShell(&geom.Mesh{}, DefaultPlan()); err == nil {
		t.Error("MakeShell accepted an empty mesh")
	}
}
