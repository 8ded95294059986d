package preprocess

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/akrolimb/socketlab/pkg/geom"
)

// barMesh builds an elongated box along the given unit axis: a cloud of
// cross sections stepped every 2mm over the length, 20mm square.
func barMesh(axis v3.Vec, lengthMM float64) *geom.Mesh {
	// Two vectors orthogonal to the axis.
	u := v3.Vec{Y: 1}
	if math.Abs(axis.Y) > 0.9 {
		u = v3.Vec{X: 1}
	}
	u = u.Sub(axis.MulScalar(u.Dot(axis)))
	u = u.MulScalar(1 / math.Sqrt(u.Dot(u)))
	w := v3.Vec{
		X: axis.Y*u.Z - axis.Z*u.Y,
		Y: axis.Z*u.X - axis.X*u.Z,
		Z: axis.X*u.Y - axis.Y*u.X,
	}

	m := &geom.Mesh{}
	for d := 0.0; d <= lengthMM; d += 2 {
		for a := -10.0; a <= 10; a += 2 {
			for b := -10.0; b <= 10; b += 2 {
				p := axis.MulScalar(d).Add(u.MulScalar(a)).Add(w.MulScalar(b))
				m.Vertices = append(m.Vertices, p)
			}
		}
	}
	// Faces are irrelevant to pose estimation but keep the mesh valid.
	m.Faces = append(m.Faces, [3]int{0, 1, 2})
	return m
}

func TestNormalizePoseDegenerate(t *testing.T) {
	m := &geom.Mesh{Vertices: []v3.Vec{{X: 1}, {X: 2}}}
	out, tf := NormalizePose(m)
	if tf != Identity4() {
		t.Errorf("transform = %v, want identity", tf)
	}
	if out.VertexCount() != 2 {
		t.Error("degenerate input not returned as a copy")
	}
	out.Vertices[0].X = 99
	if m.Vertices[0].X == 99 {
		t.Error("degenerate path returned the input, not a copy")
	}
}

func TestNormalizePoseAlignsPrincipalAxis(t *testing.T) {
	// A bar lying along X must come back standing along Z.
	m := barMesh(v3.Vec{X: 1}, 200)
	out, _ := NormalizePose(m)

	ext := out.Extents()
	if !(ext[2] > ext[0] && ext[2] > ext[1]) {
		t.Fatalf("long axis not on Z after normalization: extents %v", ext)
	}
	if math.Abs(ext[2]-200) > 5 {
		t.Errorf("Z extent = %g, want about 200", ext[2])
	}

	// Distal end floored at Z=0.
	min, _ := out.BoundingBox()
	if math.Abs(min.Z) > 1e-6 {
		t.Errorf("min Z = %g, want 0", min.Z)
	}
	// Cross sections centered on the XY origin.
	if math.Abs(min.X+10) > 2 || math.Abs(min.Y+10) > 2 {
		t.Errorf("sections not centered: min = %+v", min)
	}
}

func TestNormalizePoseObliqueAxis(t *testing.T) {
	axis := v3.Vec{X: 1, Y: 1, Z: 1}
	axis = axis.MulScalar(1 / math.Sqrt(3))
	m := barMesh(axis, 150)
	out, _ := NormalizePose(m)

	ext := out.Extents()
	if !(ext[2] > ext[0] && ext[2] > ext[1]) {
		t.Fatalf("long axis not on Z: extents %v", ext)
	}
	min, _ := out.BoundingBox()
	if math.Abs(min.Z) > 1e-6 {
		t.Errorf("min Z = %g, want 0", min.Z)
	}
}

func TestNormalizePoseAlreadyAligned(t *testing.T) {
	m := barMesh(v3.Vec{Z: 1}, 180)
	out, _ := NormalizePose(m)
	ext := out.Extents()
	if math.Abs(ext[2]-180) > 5 {
		t.Errorf("Z extent = %g, want about 180", ext[2])
	}
}

func TestIdentity4(t *testing.T) {
	id := Identity4()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if id[i][j] != want {
				t.Fatalf("Identity4()[%d][%d] = %g", i, j, id[i][j])
			}
		}
	}
}
