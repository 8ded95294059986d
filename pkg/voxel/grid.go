// Package voxel implements the dense occupancy grid the socket pipeline is
// built on: surface rasterization of triangle meshes, automatic pitch
// selection, and morphological dilation/erosion with a spherical
// structuring element.
//
// A grid is a flat boolean buffer plus enough metadata (dims, origin,
// pitch) to round-trip world coordinates without any implicit global
// state. Grids are transient: each pipeline invocation owns its own
// copies, and every reshaping operation allocates a new grid.
package voxel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Grid is a dense 3D boolean occupancy field.
// Cell (x,y,z) lives at flat index (x*ny + y)*nz + z and its world-space
// center is Origin + (x,y,z)*Pitch.
type Grid struct {
	Dims   [3]int
	Origin v3.Vec  // world position of cell (0,0,0), mm
	Pitch  float64 // uniform voxel edge length, mm
	Cells  []bool
}

// NewGrid allocates an empty grid.
func NewGrid(dims [3]int, origin v3.Vec, pitch float64) *Grid {
	return &Grid{
		Dims:   dims,
		Origin: origin,
		Pitch:  pitch,
		Cells:  make([]bool, dims[0]*dims[1]*dims[2]),
	}
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	out := &Grid{Dims: g.Dims, Origin: g.Origin, Pitch: g.Pitch}
	out.Cells = make([]bool, len(g.Cells))
	copy(out.Cells, g.Cells)
	return out
}

// Index returns the flat index of cell (x,y,z).
func (g *Grid) Index(x, y, z int) int {
	return (x*g.Dims[1]+y)*g.Dims[2] + z
}

// InBounds reports whether (x,y,z) is a valid cell.
func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && x < g.Dims[0] && y >= 0 && y < g.Dims[1] && z >= 0 && z < g.Dims[2]
}

// At returns the occupancy of cell (x,y,z). Out-of-bounds cells read false.
func (g *Grid) At(x, y, z int) bool {
	if !g.InBounds(x, y, z) {
		return false
	}
	return g.Cells[g.Index(x, y, z)]
}

// Set writes the occupancy of cell (x,y,z). Out of bounds is a no-op.
func (g *Grid) Set(x, y, z int, v bool) {
	if g.InBounds(x, y, z) {
		g.Cells[g.Index(x, y, z)] = v
	}
}

// Center returns the world-space center of cell (x,y,z).
func (g *Grid) Center(x, y, z int) v3.Vec {
	return v3.Vec{
		X: g.Origin.X + float64(x)*g.Pitch,
		Y: g.Origin.Y + float64(y)*g.Pitch,
		Z: g.Origin.Z + float64(z)*g.Pitch,
	}
}

// WorldToCell maps a world point to the nearest cell coordinate.
// The result may be out of bounds; callers clamp as needed.
func (g *Grid) WorldToCell(p v3.Vec) [3]int {
	d := p.Sub(g.Origin).MulScalar(1 / g.Pitch)
	return [3]int{roundToInt(d.X), roundToInt(d.Y), roundToInt(d.Z)}
}

// Count returns the number of set cells.
func (g *Grid) Count() int {
	n := 0
	for _, c := range g.Cells {
		if c {
			n++
		}
	}
	return n
}

// Empty reports whether no cell is set.
func (g *Grid) Empty() bool {
	for _, c := range g.Cells {
		if c {
			return false
		}
	}
	return true
}

// Full reports whether every cell is set.
func (g *Grid) Full() bool {
	for _, c := range g.Cells {
		if !c {
			return false
		}
	}
	return true
}

// MinDim returns the smallest grid dimension.
func (g *Grid) MinDim() int {
	m := g.Dims[0]
	if g.Dims[1] < m {
		m = g.Dims[1]
	}
	if g.Dims[2] < m {
		m = g.Dims[2]
	}
	return m
}

// Degenerate reports whether the grid carries no meaningful surface:
// uniformly empty, uniformly full, or thinner than 2 cells on any axis.
func (g *Grid) Degenerate() bool {
	return g.MinDim() < 2 || g.Empty() || g.Full()
}

// Pad returns a new grid grown by n empty cells on every side.
// The origin shifts by -n*pitch along each axis.
func (g *Grid) Pad(n int) *Grid {
	if n <= 0 {
		return g.Clone()
	}
	dims := [3]int{g.Dims[0] + 2*n, g.Dims[1] + 2*n, g.Dims[2] + 2*n}
	origin := g.Origin.Sub(v3.Vec{X: float64(n) * g.Pitch, Y: float64(n) * g.Pitch, Z: float64(n) * g.Pitch})
	out := NewGrid(dims, origin, g.Pitch)
	for x := 0; x < g.Dims[0]; x++ {
		for y := 0; y < g.Dims[1]; y++ {
			src := g.Index(x, y, 0)
			dst := out.Index(x+n, y+n, n)
			copy(out.Cells[dst:dst+g.Dims[2]], g.Cells[src:src+g.Dims[2]])
		}
	}
	return out
}

// EnsureMin returns a grid whose every dimension is at least minSize,
// zero-padding on the high side. Returns the receiver when already large
// enough.
func (g *Grid) EnsureMin(minSize int) *Grid {
	if g.MinDim() >= minSize {
		return g
	}
	dims := g.Dims
	for i := range dims {
		if dims[i] < minSize {
			dims[i] = minSize
		}
	}
	out := NewGrid(dims, g.Origin, g.Pitch)
	for x := 0; x < g.Dims[0]; x++ {
		for y := 0; y < g.Dims[1]; y++ {
			src := g.Index(x, y, 0)
			dst := out.Index(x, y, 0)
			copy(out.Cells[dst:dst+g.Dims[2]], g.Cells[src:src+g.Dims[2]])
		}
	}
	return out
}

// AndNot returns receiver AND NOT other. Grids must share dims.
func (g *Grid) AndNot(other *Grid) *Grid {
	out := g.Clone()
	for i, c := range other.Cells {
		if c {
			out.Cells[i] = false
		}
	}
	return out
}

func roundToInt(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
