// Package qc computes cross-section quality metrics of a generated socket:
// for a set of Z heights, the perimeter, enclosed area and equivalent
// diameter of the mesh section at that height, written as CSV for clinical
// review.
package qc

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/akrolimb/socketlab/pkg/geom"
)

// Section holds the metrics of one cross-section plane.
type Section struct {
	ZMM                  float64
	PerimeterMM          float64
	AreaMM2              float64
	EquivalentDiameterMM float64
}

// Sections intersects the mesh with horizontal planes at the given Z
// values and computes metrics per plane. Planes that do not intersect the
// mesh, or whose intersection forms no closed loop, produce no row. Holes
// (e.g. the inner wall of a shell section) subtract from the area via loop
// orientation.
func Sections(m *geom.Mesh, zs []float64) []Section {
	var rows []Section
	for _, z := range zs {
		loops := sectionLoops(m, z)
		if len(loops) == 0 {
			continue
		}
		var perim, signedArea float64
		for _, loop := range loops {
			perim += loopPerimeter(loop)
			signedArea += loopSignedArea(loop)
		}
		area := math.Abs(signedArea)
		if area <= 0 {
			continue
		}
		rows = append(rows, Section{
			ZMM:                  z,
			PerimeterMM:          perim,
			AreaMM2:              area,
			EquivalentDiameterMM: 2.0 * math.Sqrt(area/math.Pi),
		})
	}
	return rows
}

// point2 is an XY point in the section plane.
type point2 struct{ x, y float64 }

// segKey quantizes a point for endpoint matching while chaining segments.
const quantum = 1e-6

type segKey struct{ x, y int64 }

func keyOf(p point2) segKey {
	return segKey{int64(math.Round(p.x / quantum)), int64(math.Round(p.y / quantum))}
}

// sectionLoops intersects every triangle with the plane and chains the
// resulting segments into closed loops. Segments are oriented by the
// triangle winding, so a consistently outward-oriented mesh yields
// counterclockwise outer loops and clockwise hole loops; open chains are
// discarded.
func sectionLoops(m *geom.Mesh, z float64) [][]point2 {
	type segment struct{ a, b point2 }
	var segs []segment
	for _, f := range m.Faces {
		va, vb, vc := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		s, ok := trianglePlaneSegment(va, vb, vc, z)
		if ok {
			segs = append(segs, segment{s[0], s[1]})
		}
	}
	if len(segs) == 0 {
		return nil
	}

	// Chain head-to-tail on quantized endpoints.
	next := make(map[segKey][]int, len(segs))
	for i, s := range segs {
		next[keyOf(s.a)] = append(next[keyOf(s.a)], i)
	}
	used := make([]bool, len(segs))
	var loops [][]point2
	for start := range segs {
		if used[start] {
			continue
		}
		var loop []point2
		cur := start
		closed := false
		for {
			used[cur] = true
			loop = append(loop, segs[cur].a)
			k := keyOf(segs[cur].b)
			if k == keyOf(segs[start].a) {
				closed = true
				break
			}
			found := -1
			for _, cand := range next[k] {
				if !used[cand] {
					found = cand
					break
				}
			}
			if found < 0 {
				break
			}
			cur = found
		}
		if closed && len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}
	return loops
}

// trianglePlaneSegment returns the oriented segment where the triangle
// crosses the plane z=const. The segment direction follows the triangle
// winding (normal × ẑ), so loop orientation encodes inside/outside.
func trianglePlaneSegment(a, b, c v3.Vec, z float64) ([2]point2, bool) {
	verts := [3]v3.Vec{a, b, c}
	var pts []point2
	for i := 0; i < 3; i++ {
		p, q := verts[i], verts[(i+1)%3]
		da, db := p.Z-z, q.Z-z
		if (da > 0) == (db > 0) {
			continue
		}
		if math.Abs(da-db) < 1e-12 {
			continue
		}
		t := da / (da - db)
		pts = append(pts, point2{p.X + t*(q.X-p.X), p.Y + t*(q.Y-p.Y)})
	}
	if len(pts) < 2 {
		return [2]point2{}, false
	}
	seg := [2]point2{pts[0], pts[1]}

	// Orient along normal × ẑ so chained loops carry winding information.
	n := b.Sub(a).Cross(c.Sub(a))
	dir := point2{n.Y, -n.X}
	dx, dy := seg[1].x-seg[0].x, seg[1].y-seg[0].y
	if dx*dir.x+dy*dir.y < 0 {
		seg[0], seg[1] = seg[1], seg[0]
	}
	return seg, true
}

func loopPerimeter(loop []point2) float64 {
	var sum float64
	for i, p := range loop {
		q := loop[(i+1)%len(loop)]
		sum += math.Hypot(q.x-p.x, q.y-p.y)
	}
	return sum
}

// loopSignedArea is the shoelace area; sign encodes winding direction.
func loopSignedArea(loop []point2) float64 {
	var sum float64
	for i, p := range loop {
		q := loop[(i+1)%len(loop)]
		sum += p.x*q.y - q.x*p.y
	}
	return 0.5 * sum
}

// WriteCSV writes section rows with the clinical review header. An empty
// slice writes the header only.
func WriteCSV(w io.Writer, rows []Section) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"z_mm", "perimeter_mm", "area_mm2", "equivalent_diameter_mm"}); err != nil {
		return fmt.Errorf("sections csv: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			formatFloat(r.ZMM),
			formatFloat(r.PerimeterMM),
			formatFloat(r.AreaMM2),
			formatFloat(r.EquivalentDiameterMM),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("sections csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
