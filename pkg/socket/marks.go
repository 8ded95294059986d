package socket

import (
	"math"

	"github.com/akrolimb/socketlab/pkg/voxel"
)

// ApplyMarks sculpts the inner and outer occupancy grids with the given
// marks, strictly in list order. Both grids are mutated in place; they must
// share dims, origin and pitch. Invalid marks and marks whose sphere falls
// entirely outside the grid are skipped. After every pad or relief edit the
// outer grid is re-grown to contain the inner grid inside the edited
// region, so the wall thickness never goes negative.
func ApplyMarks(inner, outer *voxel.Grid, marks []Mark) {
	for i, mk := range marks {
		if !mk.Valid() {
			log.WithField("mark", i).Warn("skipping malformed mark")
			continue
		}
		applyMark(inner, outer, mk)
	}
}

// region is the clamped voxel-index cuboid covering a mark's sphere.
type region struct {
	lo, hi [3]int // inclusive
}

func (r region) empty() bool {
	return r.lo[0] >= r.hi[0] || r.lo[1] >= r.hi[1] || r.lo[2] >= r.hi[2]
}

func markRegion(g *voxel.Grid, mk Mark) region {
	c := g.WorldToCell(mk.Center)
	rVox := int(math.Ceil(mk.RadiusMM / g.Pitch))
	if rVox < 1 {
		rVox = 1
	}
	var r region
	for axis := 0; axis < 3; axis++ {
		r.lo[axis] = clampInt(c[axis]-rVox, 0, g.Dims[axis]-1)
		r.hi[axis] = clampInt(c[axis]+rVox, 0, g.Dims[axis]-1)
	}
	return r
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sphereMask returns, for each cell of the region, whether its world-space
// center lies within the mark's sphere. Indexed like a sub-grid of the
// region's shape.
func sphereMask(g *voxel.Grid, r region, mk Mark) []bool {
	nx, ny, nz := r.hi[0]-r.lo[0]+1, r.hi[1]-r.lo[1]+1, r.hi[2]-r.lo[2]+1
	mask := make([]bool, nx*ny*nz)
	r2 := mk.RadiusMM * mk.RadiusMM
	i := 0
	for x := r.lo[0]; x <= r.hi[0]; x++ {
		for y := r.lo[1]; y <= r.hi[1]; y++ {
			for z := r.lo[2]; z <= r.hi[2]; z++ {
				d := g.Center(x, y, z).Sub(mk.Center)
				mask[i] = d.Dot(d) <= r2
				i++
			}
		}
	}
	return mask
}

func applyMark(inner, outer *voxel.Grid, mk Mark) {
	r := markRegion(inner, mk)
	if r.empty() {
		return
	}
	mask := sphereMask(inner, r, mk)

	if mk.Type == MarkTrim {
		// Carve the void through both surfaces.
		forEachMasked(r, mask, func(x, y, z int) {
			inner.Set(x, y, z, false)
			outer.Set(x, y, z, false)
		})
		return
	}

	amt := radiusVoxels(mk.AmountMM, inner.Pitch)
	if math.Abs(mk.AmountMM) < 0.5*inner.Pitch {
		// Sub-half-voxel amounts still edit by one full voxel.
		log.WithFields(map[string]interface{}{
			"amount_mm": mk.AmountMM,
			"pitch_mm":  inner.Pitch,
		}).Debug("mark amount below half a voxel, rounding up to one voxel")
	}

	local := extractRegion(inner, r)
	var edited *voxel.Grid
	if mk.Type == MarkPad {
		edited = voxel.Dilate(local, amt)
	} else {
		edited = voxel.Erode(local, amt)
	}
	// Write back only inside the sphere so the edit cannot bleed past the
	// intended region.
	i := 0
	forEachCell(r, func(x, y, z int) {
		if mask[i] {
			inner.Set(x, y, z, edited.Cells[i])
		}
		i++
	})

	// Restore outer ⊇ inner where the edit pushed the inner surface out.
	forEachCell(r, func(x, y, z int) {
		if inner.At(x, y, z) && !outer.At(x, y, z) {
			outer.Set(x, y, z, true)
		}
	})
}

// extractRegion copies the region into a standalone grid whose origin is
// the world center of the region's low corner.
func extractRegion(g *voxel.Grid, r region) *voxel.Grid {
	dims := [3]int{r.hi[0] - r.lo[0] + 1, r.hi[1] - r.lo[1] + 1, r.hi[2] - r.lo[2] + 1}
	out := voxel.NewGrid(dims, g.Center(r.lo[0], r.lo[1], r.lo[2]), g.Pitch)
	i := 0
	forEachCell(r, func(x, y, z int) {
		out.Cells[i] = g.At(x, y, z)
		i++
	})
	return out
}

// forEachCell visits the region in the same x-major order used by
// sphereMask and extractRegion.
func forEachCell(r region, fn func(x, y, z int)) {
	for x := r.lo[0]; x <= r.hi[0]; x++ {
		for y := r.lo[1]; y <= r.hi[1]; y++ {
			for z := r.lo[2]; z <= r.hi[2]; z++ {
				fn(x, y, z)
			}
		}
	}
}

func forEachMasked(r region, mask []bool, fn func(x, y, z int)) {
	i := 0
	forEachCell(r, func(x, y, z int) {
		if mask[i] {
			fn(x, y, z)
		}
		i++
	})
}
