// Package batch drives shape generation: single meshes and ping-pong
// animation sequences written as numbered STL files.
package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/Faultbox/spinegen/internal/config"
	"github.com/Faultbox/spinegen/pkg/formats"
	"github.com/Faultbox/spinegen/pkg/mesh"
	"github.com/Faultbox/spinegen/pkg/ssm"
)

// Batch errors.
var (
	ErrWriteFailure       = errors.New("write failure")
	ErrInvalidSampleCount = errors.New("animation needs at least 2 samples per leg")
)

// FrameError reports the animation frame that aborted a batch.
type FrameError struct {
	Frame int // 1-based position in the ramp
	Y     float64
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d (y=%g): %v", e.Frame, e.Y, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// Result summarises a completed batch.
type Result struct {
	Variable ssm.Variable
	Values   []float64 // target value per frame, in ramp order
	Paths    []string  // written file per frame, in ramp order
}

// Driver generates meshes from one model directory.
type Driver struct {
	store   *ssm.Store
	outDir  string
	format  formats.STLFormat
	samples int
	workers int
	log     *zap.Logger
}

// New creates a driver from cfg. A nil log discards output.
func New(cfg *config.Config, log *zap.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, _ := cfg.STLFormat()
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		store:   ssm.NewStore(cfg.Model.Dir),
		outDir:  cfg.Output.Dir,
		format:  format,
		samples: cfg.Animation.SamplesPerLeg,
		workers: cfg.Animation.Workers,
		log:     log,
	}, nil
}

// Store returns the model store the driver reads from.
func (d *Driver) Store() *ssm.Store {
	return d.store
}

// Ramp returns n values rising linearly from min to max followed by n
// values falling back to min. Both legs include their endpoints, so the
// maximum appears twice in the middle.
func Ramp(min, max float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSampleCount, n)
	}
	out := make([]float64, 2*n)
	floats.Span(out[:n], min, max)
	floats.Span(out[n:], max, min)
	// Pin the endpoints exactly.
	out[n-1], out[n] = max, max
	out[0], out[2*n-1] = min, min
	return out, nil
}

// ShapePath returns the default file name for a single shape.
func ShapePath(dir string, v ssm.Variable, y float64) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%.2f.stl", v, y))
}

// FramePath returns the file name of a 1-based animation frame.
func FramePath(dir string, v ssm.Variable, frame int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.stl", v, frame))
}

func (d *Driver) prepare(v ssm.Variable) (*ssm.Reconstructor, error) {
	model, err := d.store.Load(v)
	if err != nil {
		return nil, err
	}
	d.log.Debug("model loaded",
		zap.String("variable", string(v)),
		zap.Int("vertices", model.VertexCount()),
		zap.Int("faces", len(model.Faces)),
		zap.Int("latent_dims", len(model.LoadingsY)),
	)
	return ssm.NewReconstructor(model)
}

// render reconstructs the shape at y and writes it to path.
func (d *Driver) render(rec *ssm.Reconstructor, y float64, path string) error {
	vertices, err := rec.Reconstruct(y)
	if err != nil {
		return err
	}
	m, err := mesh.Assemble(rec.Model().Faces, vertices)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("spinegen %s y=%g", rec.Model().Variable, y)
	if err := formats.SaveSTL(path, name, m, d.format); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
	}
	return nil
}

// Shape writes the mesh for one target value. An empty outPath writes
// <output dir>/<var>_<y>.stl. The written path is returned.
func (d *Driver) Shape(v ssm.Variable, y float64, outPath string) (string, error) {
	rec, err := d.prepare(v)
	if err != nil {
		return "", err
	}

	stats := rec.Model().Stats
	if !stats.InRange(y) {
		d.log.Warn("target outside observed range, shape is extrapolated",
			zap.String("variable", string(v)),
			zap.Float64("y", y),
			zap.Float64("min", stats.Min),
			zap.Float64("max", stats.Max),
		)
	}

	if outPath == "" {
		outPath = ShapePath(d.outDir, v, y)
	}
	if err := d.render(rec, y, outPath); err != nil {
		return "", err
	}

	d.log.Info("shape written", zap.String("variable", string(v)), zap.Float64("y", y), zap.String("path", outPath))
	return outPath, nil
}

type frame struct {
	index int // 1-based
	y     float64
	path  string
}

// Animate writes a ping-pong sequence across the variable's observed range
// into outDir (the configured output directory if empty). The model is
// loaded once for the whole sequence. The first failing frame aborts the
// batch and is reported as a *FrameError.
func (d *Driver) Animate(v ssm.Variable, outDir string) (*Result, error) {
	if outDir == "" {
		outDir = d.outDir
	}

	rec, err := d.prepare(v)
	if err != nil {
		return nil, err
	}
	stats := rec.Model().Stats

	values, err := Ramp(stats.Min, stats.Max, d.samples)
	if err != nil {
		return nil, err
	}

	frames := make([]frame, len(values))
	res := &Result{Variable: v, Values: values, Paths: make([]string, len(values))}
	for i, y := range values {
		frames[i] = frame{index: i + 1, y: y, path: FramePath(outDir, v, i+1)}
		res.Paths[i] = frames[i].path
	}

	d.log.Info("animation started",
		zap.String("variable", string(v)),
		zap.Float64("min", stats.Min),
		zap.Float64("max", stats.Max),
		zap.Int("frames", len(frames)),
		zap.Int("workers", d.workers),
	)

	err = d.runFrames(frames, func(f frame) error {
		if err := d.render(rec, f.y, f.path); err != nil {
			return err
		}
		d.log.Debug("frame written", zap.Int("frame", f.index), zap.Float64("y", f.y), zap.String("path", f.path))
		return nil
	})
	if err != nil {
		d.log.Error("animation aborted", zap.String("variable", string(v)), zap.Error(err))
		return nil, err
	}

	d.log.Info("animation written", zap.String("variable", string(v)), zap.String("dir", outDir), zap.Int("frames", len(frames)))
	return res, nil
}

// runFrames calls work for every frame and stops at the first failure.
// With several workers, frames already in flight finish and the lowest
// failing index is reported.
func (d *Driver) runFrames(frames []frame, work func(frame) error) error {
	workers := min(d.workers, len(frames))
	if workers <= 1 {
		for _, f := range frames {
			if err := work(f); err != nil {
				return &FrameError{Frame: f.index, Y: f.y, Err: err}
			}
		}
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed *FrameError
	)
	jobs := make(chan frame)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				if err := work(f); err != nil {
					mu.Lock()
					if failed == nil || f.index < failed.Frame {
						failed = &FrameError{Frame: f.index, Y: f.y, Err: err}
					}
					mu.Unlock()
				}
			}
		}()
	}

	for _, f := range frames {
		mu.Lock()
		stop := failed != nil
		mu.Unlock()
		if stop {
			break
		}
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	if failed != nil {
		return failed
	}
	return nil
}
