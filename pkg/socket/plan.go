// Package socket implements the socket generation pipeline: morphological
// offsetting of a voxelized limb surface into inner/outer/shell occupancy,
// localized mark sculpting, transverse plane trimming, and reconstruction
// of the result meshes.
package socket

import (
	"encoding/json"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/akrolimb/socketlab/pkg/geom"
)

// Clinical defaults, millimeters.
const (
	DefaultClearanceMM = 2.5
	DefaultWallMM      = 4.0
)

// MarkType identifies the kind of localized adjustment a mark applies.
type MarkType string

const (
	// MarkPad locally increases clearance by growing the inner surface.
	MarkPad MarkType = "pad"
	// MarkRelief locally decreases clearance by shrinking the inner surface.
	MarkRelief MarkType = "relief"
	// MarkTrim carves a void through both surfaces, e.g. a strap slot.
	MarkTrim MarkType = "trim"
)

// Mark is a clinician-specified adjustment applied inside a sphere around
// Center. Marks are processed strictly in list order; overlapping marks
// resolve last-write-wins.
type Mark struct {
	Type     MarkType
	Center   v3.Vec  // world coordinates, mm
	RadiusMM float64 // sphere radius, mm
	AmountMM float64 // pad/relief edit depth, mm
}

// Valid reports whether the mark has a known type and usable numbers.
// Invalid marks are skipped individually; the rest of the list applies.
func (mk Mark) Valid() bool {
	switch mk.Type {
	case MarkPad, MarkRelief, MarkTrim:
	default:
		return false
	}
	if !isFinite(mk.Center.X) || !isFinite(mk.Center.Y) || !isFinite(mk.Center.Z) {
		return false
	}
	if !isFinite(mk.RadiusMM) || mk.RadiusMM <= 0 {
		return false
	}
	if mk.Type != MarkTrim && !isFinite(mk.AmountMM) {
		return false
	}
	return true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ParseMarks decodes a JSON array of mark records. Field aliases from the
// clinical tooling are accepted (center_mm/center, radius_mm/radius,
// amount_mm/amount); records that cannot be decoded are dropped, matching
// the skip-and-continue contract for malformed marks. The error is non-nil
// only when the envelope itself is not a JSON array.
func ParseMarks(data []byte) ([]Mark, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("marks: %w", err)
	}
	marks := make([]Mark, 0, len(raw))
	for _, rec := range raw {
		mk := Mark{Type: MarkPad, RadiusMM: 10.0, AmountMM: 1.0}
		if v, ok := firstOf(rec, "type"); ok {
			var s string
			if json.Unmarshal(v, &s) != nil {
				continue
			}
			mk.Type = MarkType(s)
		}
		if v, ok := firstOf(rec, "center_mm", "center"); ok {
			var c [3]float64
			if json.Unmarshal(v, &c) != nil {
				continue
			}
			mk.Center = v3.Vec{X: c[0], Y: c[1], Z: c[2]}
		}
		if v, ok := firstOf(rec, "radius_mm", "radius"); ok {
			if json.Unmarshal(v, &mk.RadiusMM) != nil {
				continue
			}
		}
		if v, ok := firstOf(rec, "amount_mm", "amount"); ok {
			if json.Unmarshal(v, &mk.AmountMM) != nil {
				continue
			}
		}
		marks = append(marks, mk)
	}
	return marks, nil
}

func firstOf(rec map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// Plan holds the parameters of one pipeline invocation.
type Plan struct {
	ClearanceMM float64
	WallMM      float64
	VoxelMM     *float64 // nil selects the automatic pitch
	TrimZMM     *float64 // nil skips the proximal plane trim
	Marks       []Mark
}

// DefaultPlan returns a plan with the clinical default clearance and wall.
func DefaultPlan() Plan {
	return Plan{ClearanceMM: DefaultClearanceMM, WallMM: DefaultWallMM}
}

// Stats summarizes one pipeline run for provenance and API responses.
type Stats struct {
	BBoxMM    [3]float64 `json:"bbox_mm"`
	Faces     int        `json:"faces"`
	VolumeCM3 *float64   `json:"volume_cm3"`
}

// ShellResult is the product of one pipeline run: the inner and outer
// offset surfaces, the solid shell band between them, and the shell after
// the optional plane trim (identical to Shell when no trim was requested).
type ShellResult struct {
	Inner   *geom.Mesh
	Outer   *geom.Mesh
	Shell   *geom.Mesh
	Trimmed *geom.Mesh
	PitchMM float64
	Stats   Stats
}
