// Package limb generates synthetic limb meshes for demos and smoke tests,
// built from sdfx solids and meshed with its marching cubes renderer.
package limb

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/akrolimb/socketlab/pkg/geom"
)

// meshCells controls the marching cubes tessellation resolution for
// generated solids.
const meshCells = 128

// Default tapered-cylinder proportions, roughly a transtibial residuum.
const (
	DefaultHeightMM  = 200.0
	DefaultTopRMM    = 40.0
	DefaultBottomRMM = 60.0
)

// TaperedCylinder returns a cone-frustum limb stand-in spanning Z = 0 to
// heightMM, with the given top and bottom radii.
func TaperedCylinder(heightMM, rTopMM, rBottomMM float64) (*geom.Mesh, error) {
	s, err := sdf.Cone3D(heightMM, rBottomMM, rTopMM, 0)
	if err != nil {
		return nil, fmt.Errorf("limb: cone: %w", err)
	}
	// Cone3D centers the solid on the origin; shift so the distal end sits
	// at Z=0.
	s = sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: heightMM / 2}))

	renderer := render.NewMarchingCubesUniform(meshCells)
	tris := render.ToTriangles(s, renderer)
	if len(tris) == 0 {
		return nil, fmt.Errorf("limb: tessellation produced no triangles")
	}
	m := geom.FromTriangles(tris)
	geom.Cleanup(m)
	return m, nil
}

// Example returns the default synthetic limb.
func Example() (*geom.Mesh, error) {
	return TaperedCylinder(DefaultHeightMM, DefaultTopRMM, DefaultBottomRMM)
}
