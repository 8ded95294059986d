package geom

// Expected bounding box range for a limb scan in millimeters. Scans far
// outside this range were probably exported in meters or centimeters.
const (
	MinExtentMM = 30.0
	MaxExtentMM = 1000.0
)

// CheckUnitsMM reports whether the mesh bounding box looks like millimeter
// units, along with the extents for the caller's heuristics.
func CheckUnitsMM(m *Mesh) (bool, [3]float64) {
	ext := m.Extents()
	mx := ext[0]
	if ext[1] > mx {
		mx = ext[1]
	}
	if ext[2] > mx {
		mx = ext[2]
	}
	return mx >= MinExtentMM && mx <= MaxExtentMM, ext
}

// Scale returns a copy of the mesh with every vertex multiplied by factor.
func Scale(m *Mesh, factor float64) *Mesh {
	out := m.Clone()
	for i, v := range out.Vertices {
		out.Vertices[i] = v.MulScalar(factor)
	}
	return out
}
