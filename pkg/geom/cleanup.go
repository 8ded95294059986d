package geom

import v3 "github.com/deadsy/sdfx/vec/v3"

// epsArea2 is the squared-area floor below which a face counts as degenerate.
const epsArea2 = 1e-18

// Cleanup runs the standard post-processing sequence on a mesh, in place:
// degenerate faces, duplicate faces, unreferenced vertices, then outward
// normal orientation. Returns the mesh for chaining.
func Cleanup(m *Mesh) *Mesh {
	RemoveDegenerateFaces(m)
	RemoveDuplicateFaces(m)
	RemoveUnreferencedVertices(m)
	FixNormals(m)
	return m
}

// RemoveDegenerateFaces drops faces with a repeated vertex index or with
// near-zero area.
func RemoveDegenerateFaces(m *Mesh) {
	kept := m.Faces[:0]
	for i, f := range m.Faces {
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			continue
		}
		if m.faceArea2(i) < epsArea2 {
			continue
		}
		kept = append(kept, f)
	}
	m.Faces = kept
}

// RemoveDuplicateFaces drops faces that reference the same vertex triple as
// an earlier face, regardless of winding or rotation.
func RemoveDuplicateFaces(m *Mesh) {
	seen := make(map[[3]int]struct{}, len(m.Faces))
	kept := m.Faces[:0]
	for _, f := range m.Faces {
		key := sortedTriple(f)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, f)
	}
	m.Faces = kept
}

func sortedTriple(f [3]int) [3]int {
	a, b, c := f[0], f[1], f[2]
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]int{a, b, c}
}

// RemoveUnreferencedVertices drops vertices not used by any face and
// remaps face indices.
func RemoveUnreferencedVertices(m *Mesh) {
	remap := make([]int, len(m.Vertices))
	for i := range remap {
		remap[i] = -1
	}
	kept := make([]int, 0, len(m.Vertices))
	for _, f := range m.Faces {
		for _, idx := range f {
			if remap[idx] < 0 {
				remap[idx] = len(kept)
				kept = append(kept, idx)
			}
		}
	}
	newVerts := make([]v3.Vec, 0, len(kept))
	for _, old := range kept {
		newVerts = append(newVerts, m.Vertices[old])
	}
	m.Vertices = newVerts
	for i, f := range m.Faces {
		m.Faces[i] = [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
}

// FixNormals makes face windings consistent across shared edges, then flips
// the whole mesh if the enclosed signed volume is negative so normals point
// outward. Orientation propagates per connected component; components are
// flipped together.
func FixNormals(m *Mesh) {
	if len(m.Faces) == 0 {
		return
	}
	// Half-edge adjacency: directed edge -> faces that use it.
	type edge struct{ a, b int }
	adj := make(map[edge][]int, len(m.Faces)*3)
	for i, f := range m.Faces {
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			adj[edge{a, b}] = append(adj[edge{a, b}], i)
		}
	}
	visited := make([]bool, len(m.Faces))
	for start := range m.Faces {
		if visited[start] {
			continue
		}
		visited[start] = true
		queue := []int{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			cf := m.Faces[cur]
			for j := 0; j < 3; j++ {
				a, b := cf[j], cf[(j+1)%3]
				ka, kb := a, b
				if ka > kb {
					ka, kb = kb, ka
				}
				for _, other := range adj[edge{ka, kb}] {
					if other == cur || visited[other] {
						continue
					}
					// A consistently wound neighbor traverses the shared
					// edge in the opposite direction.
					if traversesEdge(m.Faces[other], a, b) {
						flipFace(m, other)
					}
					visited[other] = true
					queue = append(queue, other)
				}
			}
		}
	}
	if m.SignedVolume() < 0 {
		for i := range m.Faces {
			flipFace(m, i)
		}
	}
}

// traversesEdge reports whether face f contains the directed edge a->b.
func traversesEdge(f [3]int, a, b int) bool {
	for j := 0; j < 3; j++ {
		if f[j] == a && f[(j+1)%3] == b {
			return true
		}
	}
	return false
}

func flipFace(m *Mesh, i int) {
	m.Faces[i][1], m.Faces[i][2] = m.Faces[i][2], m.Faces[i][1]
}
