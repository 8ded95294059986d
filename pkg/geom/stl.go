package geom

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// stlHeaderSize is the fixed binary STL header length.
const stlHeaderSize = 80

// ReadSTL reads a binary STL stream into a mesh. Triangles sharing a vertex
// position are welded so downstream stages see an indexed mesh rather than
// a triangle soup.
func ReadSTL(r io.Reader) (*Mesh, error) {
	var header [stlHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("stl: read header: %w", err)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("stl: read triangle count: %w", err)
	}
	m := &Mesh{
		Vertices: make([]v3.Vec, 0, count),
		Faces:    make([][3]int, 0, count),
	}
	weld := make(map[[3]float32]int, count)
	var rec struct {
		Normal [3]float32
		Verts  [3][3]float32
		Attr   uint16
	}
	for i := uint32(0); i < count; i++ {
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("stl: read triangle %d of %d: %w", i, count, err)
		}
		var face [3]int
		for j, p := range rec.Verts {
			idx, ok := weld[p]
			if !ok {
				idx = len(m.Vertices)
				weld[p] = idx
				m.Vertices = append(m.Vertices, v3.Vec{
					X: float64(p[0]),
					Y: float64(p[1]),
					Z: float64(p[2]),
				})
			}
			face[j] = idx
		}
		m.Faces = append(m.Faces, face)
	}
	return m, nil
}

// LoadSTL reads a binary STL file.
func LoadSTL(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadSTL(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteSTL writes the mesh to a binary STL stream.
func WriteSTL(w io.Writer, m *Mesh) error {
	var header [stlHeaderSize]byte
	copy(header[:], "socketlab binary stl")
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("stl: write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.Faces))); err != nil {
		return fmt.Errorf("stl: write triangle count: %w", err)
	}
	for i, f := range m.Faces {
		n := m.faceNormal(i)
		l := math.Sqrt(n.Dot(n))
		if l > 0 {
			n = n.MulScalar(1 / l)
		}
		rec := struct {
			Normal [3]float32
			Verts  [3][3]float32
			Attr   uint16
		}{
			Normal: [3]float32{float32(n.X), float32(n.Y), float32(n.Z)},
		}
		for j, idx := range f {
			v := m.Vertices[idx]
			rec.Verts[j] = [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("stl: write triangle %d: %w", i, err)
		}
	}
	return nil
}

// SaveSTL writes the mesh to a binary STL file.
func SaveSTL(path string, m *Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSTL(f, m); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// ToTriangles converts the mesh to sdfx triangles.
func ToTriangles(m *Mesh) []*sdf.Triangle3 {
	tris := make([]*sdf.Triangle3, 0, len(m.Faces))
	for _, f := range m.Faces {
		t := sdf.Triangle3{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
		tris = append(tris, &t)
	}
	return tris
}

// FromTriangles builds an indexed mesh from sdfx triangles,
// welding vertices on exact position.
func FromTriangles(tris []*sdf.Triangle3) *Mesh {
	m := &Mesh{
		Vertices: make([]v3.Vec, 0, len(tris)),
		Faces:    make([][3]int, 0, len(tris)),
	}
	weld := make(map[v3.Vec]int, len(tris))
	for _, t := range tris {
		var face [3]int
		for j := 0; j < 3; j++ {
			v := t[j]
			idx, ok := weld[v]
			if !ok {
				idx = len(m.Vertices)
				weld[v] = idx
				m.Vertices = append(m.Vertices, v)
			}
			face[j] = idx
		}
		m.Faces = append(m.Faces, face)
	}
	return m
}
