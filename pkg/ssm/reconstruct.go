package ssm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Reconstruction errors.
var (
	ErrDegenerateModel = errors.New("degenerate model: Y-loadings have zero norm")
	ErrNonFiniteTarget = errors.New("target value is not finite")
)

// Reconstructor evaluates one ShapeModel at arbitrary target values. It is
// safe for concurrent use.
//
// Values outside Stats.Min..Stats.Max are extrapolated linearly and not
// clamped. Such shapes are not validated anatomical data.
type Reconstructor struct {
	model     *ShapeModel
	normSq    float64   // ||YL||^2
	direction []float64 // XL · YL, one entry per coordinate
}

// NewReconstructor checks the model's dimensions and precomputes the
// deformation direction.
func NewReconstructor(m *ShapeModel) (*Reconstructor, error) {
	if len(m.MeanVertices) == 0 || len(m.MeanVertices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d mean coordinates is not a multiple of 3", ErrMalformedTable, len(m.MeanVertices))
	}
	if m.LoadingsX == nil {
		return nil, fmt.Errorf("%w: missing X-loadings", ErrMalformedTable)
	}
	rows, cols := m.LoadingsX.Dims()
	if rows != len(m.MeanVertices) || cols != len(m.LoadingsY) {
		return nil, fmt.Errorf("%w: X-loadings are %dx%d, expected %dx%d",
			ErrMalformedTable, rows, cols, len(m.MeanVertices), len(m.LoadingsY))
	}

	// The whole loadings vector is normed; this is the single-component
	// back-projection and does not generalise to several latent dimensions.
	normSq := floats.Dot(m.LoadingsY, m.LoadingsY)
	if normSq == 0 || math.IsNaN(normSq) || math.IsInf(normSq, 0) {
		return nil, fmt.Errorf("%w (%s)", ErrDegenerateModel, m.Variable)
	}

	dir := mat.NewVecDense(rows, nil)
	dir.MulVec(m.LoadingsX, mat.NewVecDense(cols, m.LoadingsY))

	return &Reconstructor{
		model:     m,
		normSq:    normSq,
		direction: dir.RawVector().Data,
	}, nil
}

// Model returns the model being evaluated.
func (r *Reconstructor) Model() *ShapeModel {
	return r.model
}

// Score returns the latent score for y: (y - mean) / ||YL||^2.
func (r *Reconstructor) Score(y float64) float64 {
	return (y - r.model.Stats.Mean) / r.normSq
}

// Flat returns the reconstructed coordinates as a flat x,y,z vector.
func (r *Reconstructor) Flat(y float64) ([]float64, error) {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return nil, fmt.Errorf("%w: %v", ErrNonFiniteTarget, y)
	}
	out := make([]float64, len(r.model.MeanVertices))
	copy(out, r.model.MeanVertices)
	floats.AddScaled(out, r.Score(y), r.direction)
	return out, nil
}

// Reconstruct returns the mesh vertices for target value y.
func (r *Reconstructor) Reconstruct(y float64) ([]r3.Vec, error) {
	flat, err := r.Flat(y)
	if err != nil {
		return nil, err
	}
	vertices := make([]r3.Vec, len(flat)/3)
	for i := range vertices {
		vertices[i] = r3.Vec{X: flat[3*i], Y: flat[3*i+1], Z: flat[3*i+2]}
	}
	return vertices, nil
}

// Reconstruct evaluates m once at y. Use a Reconstructor to evaluate the
// same model repeatedly.
func Reconstruct(m *ShapeModel, y float64) ([]r3.Vec, error) {
	r, err := NewReconstructor(m)
	if err != nil {
		return nil, err
	}
	return r.Reconstruct(y)
}
