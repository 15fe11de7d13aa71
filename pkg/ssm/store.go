package ssm

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/spinegen/pkg/formats"
	"github.com/Faultbox/spinegen/pkg/mesh"
)

// Model store errors.
var (
	ErrMissingModelFile = errors.New("missing model file")
	ErrMalformedTable   = errors.New("malformed model table")
)

// Shared table names. Variable tables are <var>_YL, <var>_XL and <var>_y.
const (
	FacesTable    = "meanMesh_faces"
	VerticesTable = "meanMesh_vertices"
	tableExt      = ".csv"
)

// Stats is the observed distribution of a variable: [mean, min, max].
type Stats struct {
	Mean float64
	Min  float64
	Max  float64
}

// InRange reports whether y lies within the observed [Min, Max].
func (s Stats) InRange(y float64) bool {
	return y >= s.Min && y <= s.Max
}

// ShapeModel is the regression model for one variable. It is immutable once
// loaded.
type ShapeModel struct {
	Variable     Variable
	MeanVertices []float64   // x0,y0,z0,x1,... (3 × vertex count)
	Faces        []mesh.Face // 0-based, shared by every variable
	LoadingsY    []float64   // YL, one per latent dimension
	LoadingsX    *mat.Dense  // XL, (3 × vertex count) × len(LoadingsY)
	Stats        Stats
}

// VertexCount returns the number of mesh vertices.
func (m *ShapeModel) VertexCount() int {
	return len(m.MeanVertices) / 3
}

// Store reads model tables from a directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path of a named table.
func (s *Store) Path(table string) string {
	return filepath.Join(s.dir, table+tableExt)
}

// Load reads the model for v from dir.
func Load(dir string, v Variable) (*ShapeModel, error) {
	return NewStore(dir).Load(v)
}

func (s *Store) readTable(table string) (*formats.Table, error) {
	path := s.Path(table)
	t, err := formats.LoadTable(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingModelFile, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedTable, path, err)
	}
	return t, nil
}

func (s *Store) malformed(table, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedTable, s.Path(table), fmt.Sprintf(format, args...))
}

// Faces reads the shared connectivity table and converts its 1-based
// indices to 0-based. Indices below 1 on disk fail with
// mesh.ErrIndexOutOfRange; the upper bound is checked by Load.
func (s *Store) Faces() ([]mesh.Face, error) {
	t, err := s.readTable(FacesTable)
	if err != nil {
		return nil, err
	}
	if t.Cols != 3 {
		return nil, s.malformed(FacesTable, "expected 3 columns, got %d", t.Cols)
	}
	ints, err := t.Ints()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedTable, s.Path(FacesTable), err)
	}

	faces := make([]mesh.Face, t.Rows)
	for i := range faces {
		for j := 0; j < 3; j++ {
			idx := ints[i*3+j]
			if idx < 1 {
				return nil, fmt.Errorf("%w: %s row %d: index %d is not 1-based", mesh.ErrIndexOutOfRange, s.Path(FacesTable), i+1, idx)
			}
			faces[i][j] = idx - 1
		}
	}
	return faces, nil
}

// MeanVertices reads the shared mean shape as a flat coordinate vector.
func (s *Store) MeanVertices() ([]float64, error) {
	t, err := s.readTable(VerticesTable)
	if err != nil {
		return nil, err
	}
	if t.Cols != 3 {
		return nil, s.malformed(VerticesTable, "expected 3 columns, got %d", t.Cols)
	}
	return t.Data, nil
}

// Stats reads the [mean, min, max] table for v.
func (s *Store) Stats(v Variable) (Stats, error) {
	table := string(v) + "_y"
	t, err := s.readTable(table)
	if err != nil {
		return Stats{}, err
	}
	vals, err := t.Vector()
	if err != nil || len(vals) != 3 {
		return Stats{}, s.malformed(table, "expected [mean, min, max], got %dx%d", t.Rows, t.Cols)
	}
	for _, x := range vals {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Stats{}, s.malformed(table, "non-finite value %v", x)
		}
	}
	st := Stats{Mean: vals[0], Min: vals[1], Max: vals[2]}
	if st.Min > st.Max {
		return Stats{}, s.malformed(table, "min %v exceeds max %v", st.Min, st.Max)
	}
	return st, nil
}

// Load reads all five tables for v and checks their shapes against each
// other.
func (s *Store) Load(v Variable) (*ShapeModel, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, string(v))
	}

	faces, err := s.Faces()
	if err != nil {
		return nil, err
	}
	mean, err := s.MeanVertices()
	if err != nil {
		return nil, err
	}
	if err := mesh.ValidateFaces(faces, len(mean)/3); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path(FacesTable), err)
	}

	ylName := string(v) + "_YL"
	ylTable, err := s.readTable(ylName)
	if err != nil {
		return nil, err
	}
	yl, err := ylTable.Vector()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedTable, s.Path(ylName), err)
	}

	xlName := string(v) + "_XL"
	xl, err := s.readTable(xlName)
	if err != nil {
		return nil, err
	}
	if xl.Rows != len(mean) {
		return nil, s.malformed(xlName, "%d rows, expected 3 x %d vertices = %d", xl.Rows, len(mean)/3, len(mean))
	}
	if xl.Cols != len(yl) {
		return nil, s.malformed(xlName, "%d columns, expected %d to match %s", xl.Cols, len(yl), ylName)
	}

	stats, err := s.Stats(v)
	if err != nil {
		return nil, err
	}

	return &ShapeModel{
		Variable:     v,
		MeanVertices: mean,
		Faces:        faces,
		LoadingsY:    yl,
		LoadingsX:    mat.NewDense(xl.Rows, xl.Cols, xl.Data),
		Stats:        stats,
	}, nil
}

// Available returns the variables whose three tables are present in the
// store directory.
func (s *Store) Available() []Variable {
	var out []Variable
	for _, info := range variables {
		ok := true
		for _, suffix := range []string{"_YL", "_XL", "_y"} {
			if _, err := os.Stat(s.Path(string(info.Variable) + suffix)); err != nil {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, info.Variable)
		}
	}
	return out
}
