package geom

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// unitCube returns a closed 12-triangle cube spanning [0,s]^3 with outward
// winding.
func unitCube(s float64) *Mesh {
	verts := []v3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: s, Y: 0, Z: 0}, {X: s, Y: s, Z: 0}, {X: 0, Y: s, Z: 0},
		{X: 0, Y: 0, Z: s}, {X: s, Y: 0, Z: s}, {X: s, Y: s, Z: s}, {X: 0, Y: s, Z: s},
	}
	faces := [][3]int{
		{0, 2, 1}, {0, 3, 2}, // bottom, normal -Z
		{4, 5, 6}, {4, 6, 7}, // top, normal +Z
		{0, 1, 5}, {0, 5, 4}, // front, normal -Y
		{2, 3, 7}, {2, 7, 6}, // back, normal +Y
		{1, 2, 6}, {1, 6, 5}, // right, normal +X
		{3, 0, 4}, {3, 4, 7}, // left, normal -X
	}
	return &Mesh{Vertices: verts, Faces: faces}
}

func TestMeshCounts(t *testing.T) {
	m := unitCube(1)
	if got := m.VertexCount(); got != 8 {
		t.Errorf("VertexCount() = %d, want 8", got)
	}
	if got := m.TriangleCount(); got != 12 {
		t.Errorf("TriangleCount() = %d, want 12", got)
	}
	if m.IsEmpty() {
		t.Error("IsEmpty() = true for a cube")
	}
	if !(&Mesh{}).IsEmpty() {
		t.Error("IsEmpty() = false for an empty mesh")
	}
}

func TestMeshClone(t *testing.T) {
	m := unitCube(1)
	c := m.Clone()
	c.Vertices[0] = v3.Vec{X: 99, Y: 99, Z: 99}
	c.Faces[0] = [3]int{7, 7, 7}
	if m.Vertices[0].X == 99 {
		t.Error("Clone() shares vertex storage with the original")
	}
	if m.Faces[0] == [3]int{7, 7, 7} {
		t.Error("Clone() shares face storage with the original")
	}
}

func TestMeshValidate(t *testing.T) {
	if err := unitCube(1).Validate(); err != nil {
		t.Errorf("Validate() on a cube: %v", err)
	}
	bad := &Mesh{
		Vertices: []v3.Vec{{}, {X: 1}},
		Faces:    [][3]int{{0, 1, 5}},
	}
	if err := bad.Validate(); err == nil {
		t.Error("Validate() accepted an out-of-range face index")
	}
}

func TestMeshBoundingBoxAndExtents(t *testing.T) {
	m := unitCube(10)
	min, max := m.BoundingBox()
	if min.X != 0 || min.Y != 0 || min.Z != 0 {
		t.Errorf("BoundingBox() min = %+v, want origin", min)
	}
	if max.X != 10 || max.Y != 10 || max.Z != 10 {
		t.Errorf("BoundingBox() max = %+v, want (10,10,10)", max)
	}
	ext := m.Extents()
	for i, e := range ext {
		if e != 10 {
			t.Errorf("Extents()[%d] = %g, want 10", i, e)
		}
	}
}

func TestMeshSignedVolume(t *testing.T) {
	m := unitCube(10)
	got := m.SignedVolume()
	if math.Abs(got-1000) > 1e-9 {
		t.Errorf("SignedVolume() = %g, want 1000", got)
	}

	// Flipping every face inverts the sign.
	for i := range m.Faces {
		m.Faces[i][1], m.Faces[i][2] = m.Faces[i][2], m.Faces[i][1]
	}
	if got := m.SignedVolume(); math.Abs(got+1000) > 1e-9 {
		t.Errorf("SignedVolume() after flip = %g, want -1000", got)
	}
}
