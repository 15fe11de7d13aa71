package mesh

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestAssemble_SingleTriangle(t *testing.T) {
	vertices := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	faces := []Face{{0, 1, 2}}

	m, err := Assemble(faces, vertices)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 triangle, got %d", m.Len())
	}
	got := m.Triangles[0]
	want := Triangle{V1: vertices[0], V2: vertices[1], V3: vertices[2]}
	if got != want {
		t.Errorf("triangle = %+v, want %+v", got, want)
	}
}

func TestAssemble_PreservesOrderAndWinding(t *testing.T) {
	vertices := []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 0},
		{X: 0, Y: 1, Z: 0},
	}
	faces := []Face{{2, 1, 0}, {0, 2, 3}, {3, 3, 1}}

	m, err := Assemble(faces, vertices)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if m.Len() != len(faces) {
		t.Fatalf("expected %d triangles, got %d", len(faces), m.Len())
	}
	for i, f := range faces {
		tri := m.Triangles[i]
		if tri.V1 != vertices[f[0]] || tri.V2 != vertices[f[1]] || tri.V3 != vertices[f[2]] {
			t.Errorf("triangle %d = %+v, want corners of face %v", i, tri, f)
		}
	}
}

func TestAssemble_IndexOutOfRange(t *testing.T) {
	vertices := []r3.Vec{{}, {X: 1}, {Y: 1}}

	tests := []struct {
		name  string
		faces []Face
	}{
		{"index equal to count", []Face{{0, 1, 3}}},
		{"index past count", []Face{{0, 1, 2}, {10, 1, 2}}},
		{"negative index", []Face{{-1, 1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Assemble(tt.faces, vertices)
			if !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("expected ErrIndexOutOfRange, got %v", err)
			}
			if m != nil {
				t.Error("expected nil mesh on error")
			}
		})
	}
}

func TestAssemble_Empty(t *testing.T) {
	m, err := Assemble(nil, nil)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("expected empty mesh, got %d triangles", m.Len())
	}
	if box := m.BoundingBox(); box != (Box{}) {
		t.Errorf("expected zero box, got %+v", box)
	}
}

func TestTriangleNormal(t *testing.T) {
	tests := []struct {
		name string
		tri  Triangle
		want r3.Vec
	}{
		{
			name: "counter-clockwise in xy",
			tri:  Triangle{V1: r3.Vec{}, V2: r3.Vec{X: 2}, V3: r3.Vec{Y: 3}},
			want: r3.Vec{Z: 1},
		},
		{
			name: "clockwise in xy",
			tri:  Triangle{V1: r3.Vec{}, V2: r3.Vec{Y: 3}, V3: r3.Vec{X: 2}},
			want: r3.Vec{Z: -1},
		},
		{
			name: "degenerate",
			tri:  Triangle{V1: r3.Vec{X: 1}, V2: r3.Vec{X: 2}, V3: r3.Vec{X: 3}},
			want: r3.Vec{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tri.Normal(); got != tt.want {
				t.Errorf("Normal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeshBoundingBoxAndArea(t *testing.T) {
	m := &Mesh{Triangles: []Triangle{
		{V1: r3.Vec{}, V2: r3.Vec{X: 1}, V3: r3.Vec{Y: 1}},
		{V1: r3.Vec{X: -1, Z: 2}, V2: r3.Vec{X: 1}, V3: r3.Vec{Y: 1}},
	}}

	box := m.BoundingBox()
	if box.Min != (r3.Vec{X: -1}) {
		t.Errorf("box.Min = %v, want (-1,0,0)", box.Min)
	}
	if box.Max != (r3.Vec{X: 1, Y: 1, Z: 2}) {
		t.Errorf("box.Max = %v, want (1,1,2)", box.Max)
	}
	if c := box.Center(); c != (r3.Vec{Y: 0.5, Z: 1}) {
		t.Errorf("box.Center() = %v", c)
	}

	unit := &Mesh{Triangles: m.Triangles[:1]}
	if a := unit.SurfaceArea(); math.Abs(a-0.5) > 1e-12 {
		t.Errorf("SurfaceArea() = %v, want 0.5", a)
	}
}

func TestValidateFaces(t *testing.T) {
	if err := ValidateFaces([]Face{{0, 1, 2}}, 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateFaces([]Face{{0, 1, 2}}, 2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}
