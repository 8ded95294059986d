// Package preprocess normalizes limb scan pose before socket generation:
// the principal (long) axis is aligned to +Z, the cross-section centroid is
// re-centered on the XY origin, and the distal end is floored at Z=0.
package preprocess

import (
	"math"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/mat"

	"github.com/akrolimb/socketlab/pkg/geom"
)

const (
	// slabHeightMM is the Z slicing step used to sample cross-section
	// centroids.
	slabHeightMM = 10.0
	// minSlabVertices is the vertex count a slab needs before its centroid
	// participates in the median.
	minSlabVertices = 50

	eps = 1e-8
)

// Identity4 is the 4x4 identity transform.
func Identity4() [4][4]float64 {
	var t [4][4]float64
	for i := 0; i < 4; i++ {
		t[i][i] = 1
	}
	return t
}

// NormalizePose returns a pose-normalized copy of the mesh and the 4x4
// world-to-normalized transform. Degenerate inputs (fewer than 3 vertices,
// no Z extent, failed eigendecomposition) return an untouched copy and the
// identity transform.
func NormalizePose(m *geom.Mesh) (*geom.Mesh, [4][4]float64) {
	if m.VertexCount() < 3 {
		return m.Clone(), Identity4()
	}

	mean := centroid(m.Vertices)
	axis, ok := principalAxis(m.Vertices, mean)
	if !ok {
		return m.Clone(), Identity4()
	}
	r := rotationBetween(axis, v3.Vec{Z: 1})

	out := m.Clone()
	for i, v := range out.Vertices {
		out.Vertices[i] = mulMat3(r, v.Sub(mean))
	}

	zMin, zMax := math.Inf(1), math.Inf(-1)
	for _, v := range out.Vertices {
		zMin = math.Min(zMin, v.Z)
		zMax = math.Max(zMax, v.Z)
	}
	if !isFinite(zMin) || !isFinite(zMax) || zMax <= zMin {
		return m.Clone(), Identity4()
	}

	xyMed := medianSlabCentroid(out.Vertices, zMin, zMax)
	for i, v := range out.Vertices {
		out.Vertices[i] = v3.Vec{X: v.X - xyMed[0], Y: v.Y - xyMed[1], Z: v.Z}
	}

	zShift := math.Inf(1)
	for _, v := range out.Vertices {
		zShift = math.Min(zShift, v.Z)
	}
	for i, v := range out.Vertices {
		out.Vertices[i] = v3.Vec{X: v.X, Y: v.Y, Z: v.Z - zShift}
	}

	// T = Tz * Txy * R * T(-mean)
	t := Identity4()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = r[i][j]
		}
	}
	rm := mulMat3(r, mean)
	t[0][3] = -rm.X - xyMed[0]
	t[1][3] = -rm.Y - xyMed[1]
	t[2][3] = -rm.Z - zShift
	return out, t
}

func centroid(verts []v3.Vec) v3.Vec {
	var sum v3.Vec
	for _, v := range verts {
		sum = sum.Add(v)
	}
	return sum.MulScalar(1 / float64(len(verts)))
}

// principalAxis returns the direction of greatest variance via the
// eigendecomposition of the vertex covariance matrix.
func principalAxis(verts []v3.Vec, mean v3.Vec) (v3.Vec, bool) {
	var c [3][3]float64
	for _, v := range verts {
		d := v.Sub(mean)
		p := [3]float64{d.X, d.Y, d.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				c[i][j] += p[i] * p[j]
			}
		}
	}
	n := float64(len(verts) - 1)
	data := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			data = append(data, c[i][j]/n)
		}
	}
	sym := mat.NewSymDense(3, data)

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return v3.Vec{}, false
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// EigenSym orders eigenvalues ascending; the last column is the
	// principal component.
	return v3.Vec{X: vecs.At(0, 2), Y: vecs.At(1, 2), Z: vecs.At(2, 2)}, true
}

// rotationBetween returns the rotation matrix taking unit direction a to b
// (Rodrigues form). Anti-parallel inputs return the negated identity, as a
// point reflection keeps the long axis on Z.
func rotationBetween(a, b v3.Vec) [3][3]float64 {
	a = safeNormalize(a)
	b = safeNormalize(b)
	v := a.Cross(b)
	c := a.Dot(b)
	s := math.Sqrt(v.Dot(v))

	var r [3][3]float64
	if s < eps {
		sign := 1.0
		if c <= 0 {
			sign = -1.0
		}
		for i := 0; i < 3; i++ {
			r[i][i] = sign
		}
		return r
	}
	vx := [3][3]float64{
		{0, -v.Z, v.Y},
		{v.Z, 0, -v.X},
		{-v.Y, v.X, 0},
	}
	k := (1 - c) / (s*s + 1e-12)
	vx2 := matMul3(vx, vx)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = vx[i][j] + k*vx2[i][j]
		}
		r[i][i] += 1
	}
	return r
}

func safeNormalize(v v3.Vec) v3.Vec {
	l := math.Sqrt(v.Dot(v))
	return v.MulScalar(1 / (l + 1e-12))
}

func matMul3(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

func mulMat3(m [3][3]float64, v v3.Vec) v3.Vec {
	return v3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// medianSlabCentroid slices the vertex cloud into slabs along Z and
// returns the median of the per-slab XY centroids. Falls back to the
// global XY centroid when no slab is populated enough.
func medianSlabCentroid(verts []v3.Vec, zMin, zMax float64) [2]float64 {
	var cents [][2]float64
	for z0 := zMin; z0 < zMax+0.5*slabHeightMM; z0 += slabHeightMM {
		z1 := z0 + slabHeightMM
		var sx, sy float64
		n := 0
		for _, v := range verts {
			if v.Z >= z0 && v.Z < z1 {
				sx += v.X
				sy += v.Y
				n++
			}
		}
		if n >= minSlabVertices {
			cents = append(cents, [2]float64{sx / float64(n), sy / float64(n)})
		}
	}
	if len(cents) == 0 {
		var sx, sy float64
		for _, v := range verts {
			sx += v.X
			sy += v.Y
		}
		n := float64(len(verts))
		return [2]float64{sx / n, sy / n}
	}
	return [2]float64{medianOf(cents, 0), medianOf(cents, 1)}
}

func medianOf(cents [][2]float64, axis int) float64 {
	vals := make([]float64, len(cents))
	for i, c := range cents {
		vals[i] = c[axis]
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return 0.5 * (vals[n/2-1] + vals[n/2])
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
