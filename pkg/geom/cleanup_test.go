package geom

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestRemoveDegenerateFaces(t *testing.T) {
	m := unitCube(1)
	m.Faces = append(m.Faces, [3]int{0, 0, 1})                   // repeated index
	m.Faces = append(m.Faces, [3]int{0, 1, 1})                   // repeated index
	m.Vertices = append(m.Vertices, v3.Vec{X: 0.5, Y: 0, Z: 0}) // colinear with 0 and 1
	m.Faces = append(m.Faces, [3]int{0, 8, 1})                   // zero area

	RemoveDegenerateFaces(m)
	if got := m.TriangleCount(); got != 12 {
		t.Errorf("after RemoveDegenerateFaces: %d faces, want 12", got)
	}
}

func TestRemoveDuplicateFaces(t *testing.T) {
	m := unitCube(1)
	m.Faces = append(m.Faces, m.Faces[0])
	// Same triangle under rotation counts as a duplicate too.
	f := m.Faces[1]
	m.Faces = append(m.Faces, [3]int{f[1], f[2], f[0]})

	RemoveDuplicateFaces(m)
	if got := m.TriangleCount(); got != 12 {
		t.Errorf("after RemoveDuplicateFaces: %d faces, want 12", got)
	}
}

func TestRemoveUnreferencedVertices(t *testing.T) {
	m := unitCube(1)
	m.Vertices = append(m.Vertices, v3.Vec{X: 42, Y: 42, Z: 42})

	RemoveUnreferencedVertices(m)
	if got := m.VertexCount(); got != 8 {
		t.Fatalf("after RemoveUnreferencedVertices: %d vertices, want 8", got)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("remapped faces invalid: %v", err)
	}
	if math.Abs(m.SignedVolume()-1) > 1e-9 {
		t.Errorf("volume changed by vertex removal: %g", m.SignedVolume())
	}
}

func TestRemoveUnreferencedVerticesReorders(t *testing.T) {
	// An unreferenced vertex in the middle forces every later index to shift.
	m := unitCube(1)
	m.Vertices = append(m.Vertices[:4:4], append([]v3.Vec{{X: -5, Y: -5, Z: -5}}, m.Vertices[4:]...)...)
	for i := range m.Faces {
		for j, idx := range m.Faces[i] {
			if idx >= 4 {
				m.Faces[i][j] = idx + 1
			}
		}
	}

	RemoveUnreferencedVertices(m)
	if got := m.VertexCount(); got != 8 {
		t.Fatalf("after removal: %d vertices, want 8", got)
	}
	if math.Abs(m.SignedVolume()-1) > 1e-9 {
		t.Errorf("volume changed by remap: %g", m.SignedVolume())
	}
}

func TestFixNormalsGlobalFlip(t *testing.T) {
	m := unitCube(2)
	for i := range m.Faces {
		flipFace(m, i)
	}
	if m.SignedVolume() >= 0 {
		t.Fatal("test setup: expected inverted cube")
	}

	FixNormals(m)
	if got := m.SignedVolume(); math.Abs(got-8) > 1e-9 {
		t.Errorf("SignedVolume() after FixNormals = %g, want 8", got)
	}
}

func TestFixNormalsInconsistentWinding(t *testing.T) {
	m := unitCube(2)
	flipFace(m, 3)
	flipFace(m, 8)

	FixNormals(m)
	if got := m.SignedVolume(); math.Abs(got-8) > 1e-9 {
		t.Errorf("SignedVolume() after FixNormals = %g, want 8", got)
	}
}

func TestCleanup(t *testing.T) {
	m := unitCube(1)
	m.Faces = append(m.Faces, [3]int{0, 0, 1}, m.Faces[2])
	m.Vertices = append(m.Vertices, v3.Vec{X: 9, Y: 9, Z: 9})

	out := Cleanup(m)
	if got := out.TriangleCount(); got != 12 {
		t.Errorf("Cleanup() faces = %d, want 12", got)
	}
	if got := out.VertexCount(); got != 8 {
		t.Errorf("Cleanup() vertices = %d, want 8", got)
	}
	if out.SignedVolume() <= 0 {
		t.Errorf("Cleanup() left inward orientation, volume %g", out.SignedVolume())
	}
}
