package socket

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/akrolimb/socketlab/pkg/geom"
	"github.com/akrolimb/socketlab/pkg/march"
	"github.com/akrolimb/socketlab/pkg/voxel"
)

var log = logrus.WithField("component", "socket")

// fineMeshPitchMM caps the pitch for small scans so short limbs keep
// enough voxel resolution.
const (
	fineMeshThresholdMM = 100.0
	fineMeshPitchMM     = 0.4
)

// radiusVoxels converts a millimeter distance to a structuring element
// radius in voxels, never below 1.
func radiusVoxels(mm, pitch float64) int {
	r := int(math.Round(math.Abs(mm) / pitch))
	if r < 1 {
		r = 1
	}
	return r
}

// offsetGrids dilates the base occupancy by the clearance and then the wall
// thickness, producing the inner and outer grids and the shell between
// them. The base is padded so outward growth is never clipped; the returned
// grids carry the shifted origin. Postcondition: outer is a superset of
// inner.
func offsetGrids(base *voxel.Grid, clearanceMM, wallMM float64) (inner, outer, shell *voxel.Grid) {
	rClear := radiusVoxels(clearanceMM, base.Pitch)
	rWall := radiusVoxels(wallMM, base.Pitch)

	padded := base.Pad(rClear + rWall + 3)
	inner = voxel.SafeDilate(padded, rClear)
	outer = voxel.SafeDilate(inner, rWall)
	shell = shellBetween(inner, outer)
	return inner, outer, shell
}

// shellBetween computes outer AND NOT inner. When a clearance/wall
// combination collapses the band to nothing, the shell falls back to the
// one-voxel boundary of the outer surface so downstream reconstruction
// still has material to work with.
func shellBetween(inner, outer *voxel.Grid) *voxel.Grid {
	shell := outer.AndNot(inner)
	if shell.Empty() {
		shell = outer.AndNot(voxel.Erode(outer, 1))
	}
	return shell
}

// MakeShell runs the full pipeline on a cleaned limb mesh: voxelize the
// surface, offset by clearance and wall, sculpt marks in order, and
// reconstruct the inner, outer and shell meshes. The optional plane trim
// is applied to the shell mesh afterwards.
func MakeShell(limb *geom.Mesh, plan Plan) (*ShellResult, error) {
	if limb.IsEmpty() {
		return nil, fmt.Errorf("socket: limb mesh is empty")
	}
	ext := limb.Extents()

	pitch := voxel.AutoPitch(ext)
	if plan.VoxelMM != nil && *plan.VoxelMM > 0 {
		pitch = *plan.VoxelMM
	}
	if maxExtent(ext) < fineMeshThresholdMM && pitch > fineMeshPitchMM {
		pitch = fineMeshPitchMM
	}

	base, pitchUsed := voxel.BuildSurface(limb, pitch)
	if pitchUsed != pitch {
		log.WithFields(logrus.Fields{
			"requested_mm": pitch,
			"used_mm":      pitchUsed,
		}).Info("voxel pitch reduced after degenerate rasterization")
	}

	inner, outer, _ := offsetGrids(base, plan.ClearanceMM, plan.WallMM)
	if len(plan.Marks) > 0 {
		ApplyMarks(inner, outer, plan.Marks)
	}
	shell := shellBetween(inner, outer)

	innerMesh, err := march.Reconstruct(inner)
	if err != nil {
		return nil, fmt.Errorf("socket: inner surface: %w", err)
	}
	outerMesh, err := march.Reconstruct(outer)
	if err != nil {
		return nil, fmt.Errorf("socket: outer surface: %w", err)
	}
	shellMesh, err := march.Reconstruct(shell)
	if err != nil {
		return nil, fmt.Errorf("socket: shell: %w", err)
	}

	trimmed := shellMesh
	if plan.TrimZMM != nil {
		trimmed, err = TrimAbove(shellMesh, pitchUsed, *plan.TrimZMM)
		if err != nil {
			return nil, fmt.Errorf("socket: plane trim at z=%.1f: %w", *plan.TrimZMM, err)
		}
	}

	res := &ShellResult{
		Inner:   innerMesh,
		Outer:   outerMesh,
		Shell:   shellMesh,
		Trimmed: trimmed,
		PitchMM: pitchUsed,
		Stats: Stats{
			BBoxMM: ext,
			Faces:  trimmed.TriangleCount(),
		},
	}
	if vol := trimmed.SignedVolume(); vol > 0 {
		cm3 := vol / 1000.0
		res.Stats.VolumeCM3 = &cm3
	}
	return res, nil
}

func maxExtent(ext [3]float64) float64 {
	return math.Max(ext[0], math.Max(ext[1], ext[2]))
}
