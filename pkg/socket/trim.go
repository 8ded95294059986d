package socket

import (
	"fmt"

	"github.com/akrolimb/socketlab/pkg/geom"
	"github.com/akrolimb/socketlab/pkg/march"
	"github.com/akrolimb/socketlab/pkg/voxel"
)

// TrimAbove cuts the mesh at a transverse plane by re-voxelizing it,
// clearing every voxel layer whose world Z center lies above
// zCutoff + pitch/2, and reconstructing the surface. Used to cut the
// proximal end of the socket to the clinical trim height. Trimming away
// everything returns march.ErrEmptyGeometry.
func TrimAbove(m *geom.Mesh, pitchMM, zCutoffMM float64) (*geom.Mesh, error) {
	grid, pitchUsed := voxel.BuildSurface(m, pitchMM)

	limit := zCutoffMM + 0.5*pitchUsed
	for z := 0; z < grid.Dims[2]; z++ {
		if grid.Origin.Z+float64(z)*pitchUsed <= limit {
			continue
		}
		for x := 0; x < grid.Dims[0]; x++ {
			for y := 0; y < grid.Dims[1]; y++ {
				grid.Cells[grid.Index(x, y, z)] = false
			}
		}
	}

	out, err := march.Reconstruct(grid)
	if err != nil {
		return nil, fmt.Errorf("trim above z=%.2f: %w", zCutoffMM, err)
	}
	return out, nil
}
