package voxel

// sphereOffsets returns the cell offsets of a ball of integer radius r,
// the structuring element used by dilation and erosion.
func sphereOffsets(r int) [][3]int {
	if r < 1 {
		r = 1
	}
	offs := make([][3]int, 0, (2*r+1)*(2*r+1)*(2*r+1))
	r2 := r * r
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if dx*dx+dy*dy+dz*dz <= r2 {
					offs = append(offs, [3]int{dx, dy, dz})
				}
			}
		}
	}
	return offs
}

// Dilate grows the occupancy by a spherical structuring element of radius r.
// The result has the same dims, origin and pitch; growth beyond the grid
// boundary is clipped, so callers pad first when outward growth matters.
func Dilate(g *Grid, r int) *Grid {
	offs := sphereOffsets(r)
	out := NewGrid(g.Dims, g.Origin, g.Pitch)
	for x := 0; x < g.Dims[0]; x++ {
		for y := 0; y < g.Dims[1]; y++ {
			for z := 0; z < g.Dims[2]; z++ {
				if !g.Cells[g.Index(x, y, z)] {
					continue
				}
				for _, o := range offs {
					out.Set(x+o[0], y+o[1], z+o[2], true)
				}
			}
		}
	}
	return out
}

// Erode shrinks the occupancy by a spherical structuring element of radius
// r. Cells outside the grid read as empty, so occupancy touching the
// boundary erodes away.
func Erode(g *Grid, r int) *Grid {
	offs := sphereOffsets(r)
	out := NewGrid(g.Dims, g.Origin, g.Pitch)
	for x := 0; x < g.Dims[0]; x++ {
		for y := 0; y < g.Dims[1]; y++ {
		cells:
			for z := 0; z < g.Dims[2]; z++ {
				if !g.Cells[g.Index(x, y, z)] {
					continue
				}
				for _, o := range offs {
					if !g.At(x+o[0], y+o[1], z+o[2]) {
						continue cells
					}
				}
				out.Cells[out.Index(x, y, z)] = true
			}
		}
	}
	return out
}

// SafeDilate dilates with radius r, shrinking the radius when the result
// collapses to a uniform grid. If no radius down to 1 produces a usable
// result, the input is returned unchanged (as a copy).
func SafeDilate(g *Grid, r int) *Grid {
	if r < 1 {
		r = 1
	}
	for ; r >= 1; r-- {
		out := Dilate(g, r)
		if !out.Empty() && !out.Full() {
			return out
		}
	}
	return g.Clone()
}
