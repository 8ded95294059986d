// Package geom defines the triangle mesh type shared by every pipeline
// stage, along with the cleanup passes (degenerate/duplicate face removal,
// unreferenced vertex removal, outward normal orientation) and binary STL
// input/output.
package geom

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is an indexed triangle mesh in millimeter units.
// Vertices are world-space points; each face references three vertices.
// Meshes returned by pipeline stages are owned by the caller and are not
// mutated afterwards.
type Mesh struct {
	Vertices []v3.Vec
	Faces    [][3]int
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Faces) == 0
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		Vertices: make([]v3.Vec, len(m.Vertices)),
		Faces:    make([][3]int, len(m.Faces)),
	}
	copy(out.Vertices, m.Vertices)
	copy(out.Faces, m.Faces)
	return out
}

// Validate checks that every face index is in range.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("face %d references vertex %d, mesh has %d vertices", i, idx, n)
			}
		}
	}
	return nil
}

// BoundingBox returns the axis-aligned bounding box.
// Both corners are the zero vector for an empty mesh.
func (m *Mesh) BoundingBox() (min, max v3.Vec) {
	if len(m.Vertices) == 0 {
		return v3.Vec{}, v3.Vec{}
	}
	min = m.Vertices[0]
	max = m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		min = min.Min(v)
		max = max.Max(v)
	}
	return min, max
}

// Extents returns the bounding box edge lengths (dx, dy, dz).
func (m *Mesh) Extents() [3]float64 {
	min, max := m.BoundingBox()
	d := max.Sub(min)
	return [3]float64{d.X, d.Y, d.Z}
}

// faceNormal returns the (unnormalized) normal of face i.
func (m *Mesh) faceNormal(i int) v3.Vec {
	f := m.Faces[i]
	a := m.Vertices[f[0]]
	b := m.Vertices[f[1]]
	c := m.Vertices[f[2]]
	return b.Sub(a).Cross(c.Sub(a))
}

// SignedVolume returns the signed volume enclosed by the mesh via the
// divergence theorem. Positive when faces wind counterclockwise seen from
// outside. Only meaningful for closed meshes.
func (m *Mesh) SignedVolume() float64 {
	var vol float64
	for _, f := range m.Faces {
		a := m.Vertices[f[0]]
		b := m.Vertices[f[1]]
		c := m.Vertices[f[2]]
		vol += a.Dot(b.Cross(c))
	}
	return vol / 6.0
}

// faceArea2 returns the squared cross-product magnitude of face i,
// proportional to the squared face area.
func (m *Mesh) faceArea2(i int) float64 {
	n := m.faceNormal(i)
	return n.Dot(n)
}
