// Package job runs the full shell pipeline for one limb scan: load, unit
// rescale, optional pose normalization, shell generation, QC sections and
// provenance. The CLI and the HTTP server both drive it.
package job

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/akrolimb/socketlab/pkg/geom"
	"github.com/akrolimb/socketlab/pkg/preprocess"
	"github.com/akrolimb/socketlab/pkg/prov"
	"github.com/akrolimb/socketlab/pkg/qc"
	"github.com/akrolimb/socketlab/pkg/recipe"
	"github.com/akrolimb/socketlab/pkg/socket"
)

var log = logrus.WithField("component", "job")

// Spacing of the QC cross sections along the trimmed shell.
const sectionStepMM = 10.0

// Request describes one pipeline invocation.
type Request struct {
	// LimbPath is the input scan, binary STL.
	LimbPath string
	// Plan, when set, is used as-is instead of ParamsJSON/MarksJSON. The
	// CLI builds it from flags; the server goes through the JSON fields.
	Plan *socket.Plan
	// ParamsJSON optionally overrides plan fields, e.g.
	// {"clearance_mm":3,"wall_mm":5,"voxel_mm":0.5,"trim_z_mm":240}.
	ParamsJSON string
	// MarksJSON optionally carries a mark list in the lenient JSON form.
	MarksJSON string
	// Recipe optionally carries recipe source. When present it is evaluated
	// on top of the defaults and ParamsJSON/MarksJSON are ignored.
	Recipe string
	// AssumeUnits forces the input units: "mm", "cm" or "m". Empty selects
	// the extent heuristic.
	AssumeUnits string
	// ScaleFactor, when positive, multiplies vertices directly and
	// overrides AssumeUnits.
	ScaleFactor float64
	// NormalizePose aligns the principal axis with +Z before meshing.
	NormalizePose bool
}

// Result reports where the pipeline wrote its artifacts.
type Result struct {
	// Outputs maps artifact name (socket_inner.stl, sections.csv, ...) to
	// the absolute path it was written at.
	Outputs map[string]string
	Stats   socket.Stats
	Plan    socket.Plan
}

// Run executes the pipeline and writes all artifacts into outDir.
// engine may be nil when req.Recipe is empty.
func Run(req Request, outDir string, engine *recipe.Engine) (*Result, error) {
	plan, err := buildPlan(req, engine)
	if err != nil {
		return nil, err
	}

	limb, err := geom.LoadSTL(req.LimbPath)
	if err != nil {
		return nil, fmt.Errorf("load limb: %w", err)
	}
	limb, scale := rescale(limb, req)
	if req.NormalizePose {
		var transform [4][4]float64
		limb, transform = preprocess.NormalizePose(limb)
		log.WithField("transform", transform).Debug("pose normalized")
	}

	result, err := socket.MakeShell(limb, plan)
	if err != nil {
		return nil, err
	}

	outputs := map[string]string{
		"socket_inner.stl":   filepath.Join(outDir, "socket_inner.stl"),
		"socket_outer.stl":   filepath.Join(outDir, "socket_outer.stl"),
		"socket_trimmed.stl": filepath.Join(outDir, "socket_trimmed.stl"),
	}
	if err := geom.SaveSTL(outputs["socket_inner.stl"], result.Inner); err != nil {
		return nil, err
	}
	if err := geom.SaveSTL(outputs["socket_outer.stl"], result.Outer); err != nil {
		return nil, err
	}
	if err := geom.SaveSTL(outputs["socket_trimmed.stl"], result.Trimmed); err != nil {
		return nil, err
	}

	sectionsPath := filepath.Join(outDir, "sections.csv")
	if err := writeSections(sectionsPath, result.Trimmed); err != nil {
		return nil, err
	}
	outputs["sections.csv"] = sectionsPath

	provPath := filepath.Join(outDir, "provenance.json")
	if err := writeProvenance(provPath, req, plan, scale, result); err != nil {
		return nil, err
	}
	outputs["provenance.json"] = provPath

	return &Result{Outputs: outputs, Stats: result.Stats, Plan: plan}, nil
}

// planParams mirrors the ParamsJSON override surface.
type planParams struct {
	ClearanceMM *float64 `json:"clearance_mm"`
	WallMM      *float64 `json:"wall_mm"`
	VoxelMM     *float64 `json:"voxel_mm"`
	TrimZMM     *float64 `json:"trim_z_mm"`
}

func buildPlan(req Request, engine *recipe.Engine) (socket.Plan, error) {
	if req.Recipe != "" {
		if engine == nil {
			engine = recipe.NewEngine()
		}
		plan, evalErrs, err := engine.Evaluate(req.Recipe)
		if err != nil {
			return socket.Plan{}, fmt.Errorf("recipe: %w", err)
		}
		if len(evalErrs) > 0 {
			return socket.Plan{}, fmt.Errorf("recipe: %w", evalErrs[0])
		}
		return plan, nil
	}
	if req.Plan != nil {
		return *req.Plan, nil
	}

	plan := socket.DefaultPlan()
	if req.ParamsJSON != "" {
		var p planParams
		if err := json.Unmarshal([]byte(req.ParamsJSON), &p); err != nil {
			return socket.Plan{}, fmt.Errorf("parse params: %w", err)
		}
		if p.ClearanceMM != nil {
			plan.ClearanceMM = *p.ClearanceMM
		}
		if p.WallMM != nil {
			plan.WallMM = *p.WallMM
		}
		plan.VoxelMM = p.VoxelMM
		plan.TrimZMM = p.TrimZMM
	}
	if req.MarksJSON != "" {
		marks, err := socket.ParseMarks([]byte(req.MarksJSON))
		if err != nil {
			return socket.Plan{}, fmt.Errorf("parse marks: %w", err)
		}
		plan.Marks = marks
	}
	return plan, nil
}

// rescale converts the mesh to millimeters. An explicit factor wins, then a
// declared unit, then the extent heuristic: a scan under 5mm across was
// almost certainly exported in meters.
func rescale(m *geom.Mesh, req Request) (*geom.Mesh, float64) {
	if req.ScaleFactor > 0 {
		return geom.Scale(m, req.ScaleFactor), req.ScaleFactor
	}
	switch req.AssumeUnits {
	case "m":
		return geom.Scale(m, 1000), 1000
	case "cm":
		return geom.Scale(m, 10), 10
	case "mm":
		return m, 1
	}
	ok, ext := geom.CheckUnitsMM(m)
	if !ok {
		mx := ext[0]
		for _, e := range ext[1:] {
			if e > mx {
				mx = e
			}
		}
		if mx > 0 && mx < 5 {
			log.WithField("extent_mm", mx).Warn("scan looks meter-scaled, converting to mm")
			return geom.Scale(m, 1000), 1000
		}
		log.WithField("extents", ext).Warn("scan extents outside the expected mm range")
	}
	return m, 1
}

// sectionHeights samples cut planes from the bottom of the shell upward,
// including the base plane and one within half a step of the top.
func sectionHeights(minZ, maxZ float64) []float64 {
	var zs []float64
	for z := minZ; z < maxZ+0.5*sectionStepMM; z += sectionStepMM {
		zs = append(zs, z)
	}
	return zs
}

func writeSections(path string, trimmed *geom.Mesh) error {
	min, max := trimmed.BoundingBox()
	rows := qc.Sections(trimmed, sectionHeights(min.Z, max.Z))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write sections: %w", err)
	}
	defer f.Close()
	if err := qc.WriteCSV(f, rows); err != nil {
		return fmt.Errorf("write sections: %w", err)
	}
	return nil
}

func writeProvenance(path string, req Request, plan socket.Plan, scale float64, result *socket.ShellResult) error {
	limbSHA, err := prov.SHA256File(req.LimbPath)
	if err != nil {
		return fmt.Errorf("hash limb: %w", err)
	}
	inputs := map[string]interface{}{
		"limb_path":   req.LimbPath,
		"limb_sha256": limbSHA,
	}
	params := map[string]interface{}{
		"clearance_mm": plan.ClearanceMM,
		"wall_mm":      plan.WallMM,
		"voxel_mm":     result.PitchMM,
		"scale_factor": scale,
		"marks":        len(plan.Marks),
	}
	if plan.TrimZMM != nil {
		params["trim_z_mm"] = *plan.TrimZMM
	}
	if req.Recipe != "" {
		inputs["recipe_sha256"] = prov.SHA256Bytes([]byte(req.Recipe))
	}
	return prov.Write(path, prov.New(inputs, params, result.Stats))
}
