// Package mesh assembles indexed vertex data into triangle-soup meshes.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrIndexOutOfRange is returned when a face references a vertex that does
// not exist.
var ErrIndexOutOfRange = errors.New("face index out of range")

// Face is a triangle given as three 0-based vertex indices.
type Face [3]int

// Triangle is a face with its corner positions resolved.
type Triangle struct {
	V1, V2, V3 r3.Vec
}

// Normal returns the unit normal following the right-hand rule over
// V1, V2, V3. Degenerate triangles return the zero vector.
func (t Triangle) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t.V2, t.V1), r3.Sub(t.V3, t.V1))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// Area returns the triangle's surface area.
func (t Triangle) Area() float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(t.V2, t.V1), r3.Sub(t.V3, t.V1)))
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max r3.Vec
}

// Size returns the box extent along each axis.
func (b Box) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Center returns the box midpoint.
func (b Box) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Mesh is an unindexed triangle list. Triangle order is significant.
type Mesh struct {
	Triangles []Triangle
}

// Len returns the triangle count.
func (m *Mesh) Len() int {
	return len(m.Triangles)
}

// BoundingBox returns the bounds of all corners. An empty mesh yields a zero box.
func (m *Mesh) BoundingBox() Box {
	if len(m.Triangles) == 0 {
		return Box{}
	}
	inf := math.Inf(1)
	box := Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
	for _, t := range m.Triangles {
		for _, v := range [3]r3.Vec{t.V1, t.V2, t.V3} {
			box.Min = r3.Vec{X: math.Min(box.Min.X, v.X), Y: math.Min(box.Min.Y, v.Y), Z: math.Min(box.Min.Z, v.Z)}
			box.Max = r3.Vec{X: math.Max(box.Max.X, v.X), Y: math.Max(box.Max.Y, v.Y), Z: math.Max(box.Max.Z, v.Z)}
		}
	}
	return box
}

// SurfaceArea returns the summed area of all triangles.
func (m *Mesh) SurfaceArea() float64 {
	var total float64
	for _, t := range m.Triangles {
		total += t.Area()
	}
	return total
}

// ValidateFaces checks that every face index addresses one of n vertices.
func ValidateFaces(faces []Face, n int) error {
	for i, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("%w: face %d references vertex %d (vertex count %d)", ErrIndexOutOfRange, i, idx, n)
			}
		}
	}
	return nil
}

// Assemble resolves each face against vertices, producing one triangle per
// face in face order. Winding is kept exactly as stored.
func Assemble(faces []Face, vertices []r3.Vec) (*Mesh, error) {
	if err := ValidateFaces(faces, len(vertices)); err != nil {
		return nil, err
	}

	m := &Mesh{Triangles: make([]Triangle, len(faces))}
	for i, f := range faces {
		m.Triangles[i] = Triangle{
			V1: vertices[f[0]],
			V2: vertices[f[1]],
			V3: vertices[f[2]],
		}
	}
	return m, nil
}
