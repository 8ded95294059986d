// Package march converts a boolean occupancy grid back into a triangle
// mesh by isosurface extraction: marching cubes at level 0.5 over the
// occupancy treated as a 0/1 density sampled at voxel centers. Extracted
// coordinates are translated into world space by the grid origin, and
// vertices on shared cube edges are welded so the result is indexed, not
// a triangle soup.
package march

import (
	"errors"
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/akrolimb/socketlab/pkg/geom"
	"github.com/akrolimb/socketlab/pkg/voxel"
)

// ErrEmptyGeometry is returned when the grid has no set voxels. There is
// nothing to extract; callers must treat this as fatal rather than carry
// an empty mesh forward.
var ErrEmptyGeometry = errors.New("march: empty geometry: occupancy grid has no set voxels")

// isoLevel is the extraction threshold over the 0/1 occupancy density.
const isoLevel = 0.5

// edgeKey identifies a cube edge by its two lattice endpoints, in
// canonical order, so crossings shared between adjacent cubes weld to the
// same output vertex.
type edgeKey struct {
	ax, ay, az int
	bx, by, bz int
}

func makeEdgeKey(a, b [3]int) edgeKey {
	if b[0] < a[0] || (b[0] == a[0] && (b[1] < a[1] || (b[1] == a[1] && b[2] < a[2]))) {
		a, b = b, a
	}
	return edgeKey{a[0], a[1], a[2], b[0], b[1], b[2]}
}

// Reconstruct extracts the occupancy isosurface as a cleaned triangle mesh.
// The grid is zero-padded to a minimum dimension of 2 first. An entirely
// empty grid returns ErrEmptyGeometry.
//
// The case table does not disambiguate face-ambiguous configurations, so
// voxels touching only along a face diagonal can leave open edges. The
// shell pipeline feeds in dilated solids with padded borders, which never
// hit those configurations.
func Reconstruct(g *voxel.Grid) (*geom.Mesh, error) {
	if g.Empty() {
		return nil, ErrEmptyGeometry
	}
	g = g.EnsureMin(2)

	m := &geom.Mesh{}
	welded := make(map[edgeKey]int)

	density := func(x, y, z int) float64 {
		if g.At(x, y, z) {
			return 1.0
		}
		return 0.0
	}

	var vals [8]float64
	var corners [8][3]int
	for x := 0; x < g.Dims[0]-1; x++ {
		for y := 0; y < g.Dims[1]-1; y++ {
			for z := 0; z < g.Dims[2]-1; z++ {
				cubeIndex := 0
				for i, off := range cornerOffset {
					corners[i] = [3]int{x + off[0], y + off[1], z + off[2]}
					vals[i] = density(corners[i][0], corners[i][1], corners[i][2])
					if vals[i] < isoLevel {
						cubeIndex |= 1 << i
					}
				}
				edges := edgeTable[cubeIndex]
				if edges == 0 {
					continue
				}

				// Output vertex index per crossed edge of this cube.
				var edgeVert [12]int
				for e := 0; e < 12; e++ {
					if edges&(1<<e) == 0 {
						continue
					}
					a := corners[edgeCorners[e][0]]
					b := corners[edgeCorners[e][1]]
					key := makeEdgeKey(a, b)
					idx, ok := welded[key]
					if !ok {
						p := interpolate(g, a, b, vals[edgeCorners[e][0]], vals[edgeCorners[e][1]])
						idx = len(m.Vertices)
						m.Vertices = append(m.Vertices, p)
						welded[key] = idx
					}
					edgeVert[e] = idx
				}

				tri := triTable[cubeIndex]
				for t := 0; tri[t] != -1; t += 3 {
					m.Faces = append(m.Faces, [3]int{
						edgeVert[tri[t]],
						edgeVert[tri[t+1]],
						edgeVert[tri[t+2]],
					})
				}
			}
		}
	}

	geom.Cleanup(m)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("march: reconstructed mesh invalid: %w", err)
	}
	return m, nil
}

// interpolate places the crossing vertex on the edge between two lattice
// points by linear interpolation of the density, in world coordinates.
// With a binary field both values differ, so the divisor never vanishes;
// the epsilon guard covers future non-binary densities.
func interpolate(g *voxel.Grid, a, b [3]int, va, vb float64) v3.Vec {
	t := 0.5
	if d := vb - va; d > 1e-12 || d < -1e-12 {
		t = (isoLevel - va) / d
	}
	pa := g.Center(a[0], a[1], a[2])
	pb := g.Center(b[0], b[1], b[2])
	return pa.Add(pb.Sub(pa).MulScalar(t))
}
