package voxel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/akrolimb/socketlab/pkg/geom"
)

// Pitch selection bounds, millimeters.
const (
	autoPitchMin = 0.3
	autoPitchMax = 1.0
	// autoPitchTarget bounds the worst-case voxel count to roughly this
	// many samples along the longest bounding box axis.
	autoPitchTarget = 384.0

	// retryPitchFloor is how fine the rasterizer will go when halving the
	// pitch on degenerate results. One notch below the auto-pitch floor.
	retryPitchFloor = 0.25

	// rasterRetries is the number of additional pitch-halving attempts
	// after the first rasterization.
	rasterRetries = 3
)

// AutoPitch picks a voxel pitch from bounding box extents (mm):
// longest/384 clamped to [0.3, 1.0]. Monotonic in the longest extent.
func AutoPitch(extents [3]float64) float64 {
	mx := math.Max(extents[0], math.Max(extents[1], extents[2]))
	p := mx / autoPitchTarget
	if p < autoPitchMin {
		return autoPitchMin
	}
	if p > autoPitchMax {
		return autoPitchMax
	}
	return p
}

// BuildSurface rasterizes the mesh surface (not a filled interior) into an
// occupancy grid at the requested pitch. A degenerate result — empty, full,
// or thinner than 2 cells — is retried with the pitch halved (floored at
// 0.25 mm), up to 3 extra attempts. When every attempt fails the last
// grid is returned best-effort, padded so every dimension is at least 2.
// The pitch actually used is returned and may differ from the request.
func BuildSurface(m *geom.Mesh, pitch float64) (*Grid, float64) {
	p := pitch
	var last *Grid
	for attempt := 0; attempt <= rasterRetries; attempt++ {
		g := rasterizeSurface(m, p)
		if !g.Degenerate() {
			return g, p
		}
		last = g
		p = math.Max(p*0.5, retryPitchFloor)
	}
	return last.EnsureMin(2), last.Pitch
}

// rasterizeSurface marks every voxel touched by a triangle of the mesh.
// Triangles are covered by barycentric sampling at half-pitch density.
func rasterizeSurface(m *geom.Mesh, pitch float64) *Grid {
	min, max := m.BoundingBox()
	d := max.Sub(min)
	dims := [3]int{
		int(math.Ceil(d.X/pitch)) + 1,
		int(math.Ceil(d.Y/pitch)) + 1,
		int(math.Ceil(d.Z/pitch)) + 1,
	}
	g := NewGrid(dims, min, pitch)
	step := pitch * 0.5

	for _, f := range m.Faces {
		a := m.Vertices[f[0]]
		b := m.Vertices[f[1]]
		c := m.Vertices[f[2]]
		ab := b.Sub(a)
		ac := c.Sub(a)
		longest := math.Max(edgeLen(ab), math.Max(edgeLen(ac), edgeLen(b.Sub(c))))
		n := int(math.Ceil(longest / step))
		if n < 1 {
			n = 1
		}
		for i := 0; i <= n; i++ {
			u := float64(i) / float64(n)
			for j := 0; j <= n-i; j++ {
				v := float64(j) / float64(n)
				p := a.Add(ab.MulScalar(u)).Add(ac.MulScalar(v))
				cell := g.WorldToCell(p)
				g.Set(cell[0], cell[1], cell[2], true)
			}
		}
	}
	return g
}

func edgeLen(v v3.Vec) float64 {
	return math.Sqrt(v.Dot(v))
}
