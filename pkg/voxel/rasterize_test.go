package voxel

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/akrolimb/socketlab/pkg/geom"
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

func TestAutoPitch(t *testing.T) {
	tests := []struct {
		name    string
		extents [3]float64
		want    float64
	}{
		{"small scan clamps low", [3]float64{20, 20, 20}, 0.3},
		{"typical limb", [3]float64{120, 120, 200}, 200.0 / 384.0},
		{"huge scan clamps high", [3]float64{900, 200, 200}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AutoPitch(tt.extents)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("AutoPitch(%v) = %g, want %g", tt.extents, got, tt.want)
			}
		})
	}
}

func TestAutoPitchMonotonic(t *testing.T) {
	prev := 0.0
	for mx := 50.0; mx <= 800; mx += 25 {
		p := AutoPitch([3]float64{mx, 10, 10})
		if p < prev {
			t.Fatalf("AutoPitch not monotonic: %g after %g", p, prev)
		}
		prev = p
	}
}

func TestBuildSurface(t *testing.T) {
	g, pitch := BuildSurface(cubeMesh(40), 1.0)
	if pitch != 1.0 {
		t.Errorf("pitch = %g, want the requested 1.0", pitch)
	}
	if g.Empty() {
		t.Fatal("surface grid is empty")
	}
	if g.Full() {
		t.Fatal("surface-only rasterization filled the grid")
	}
	if g.MinDim() < 2 {
		t.Errorf("MinDim() = %d, want >= 2", g.MinDim())
	}
	// The cube interior must stay unset.
	mid := g.WorldToCell(v3.Vec{X: 20, Y: 20, Z: 20})
	if g.At(mid[0], mid[1], mid[2]) {
		t.Error("interior voxel set by surface rasterization")
	}
	// Surface voxels exist on every face of the cube.
	lo := g.WorldToCell(v3.Vec{X: 20, Y: 20, Z: 0})
	if !g.At(lo[0], lo[1], lo[2]) {
		t.Error("bottom face not rasterized")
	}
}

func TestBuildSurfaceRetriesDegenerate(t *testing.T) {
	// At 5mm pitch a 4mm cube saturates its 2x2x2 grid; the builder must
	// halve the pitch until the grid has structure.
	g, pitch := BuildSurface(cubeMesh(4), 5.0)
	if pitch >= 5.0 {
		t.Errorf("pitch = %g, expected a retry below the request", pitch)
	}
	if g.MinDim() < 2 {
		t.Errorf("MinDim() = %d, want >= 2 even on fallback", g.MinDim())
	}
	if g.Empty() {
		t.Error("fallback grid is empty")
	}
}
