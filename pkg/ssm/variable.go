// Package ssm loads and evaluates the lumbar spine statistical shape model.
//
// The model relates one scalar clinical variable to mesh deformation through
// a single-component partial least squares regression. Evaluating it at a
// value y yields the mean shape displaced along one deformation direction.
package ssm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownVariable is returned for names outside the modelled set.
var ErrUnknownVariable = errors.New("unknown model variable")

// Variable names a clinical variable the shape model is regressed on.
type Variable string

// Modelled variables. The string values are also the table file prefixes.
const (
	DiscBulge         Variable = "DiscBulge"
	Spondylolisthesis Variable = "Spondylolisthesis"
	Female            Variable = "Female"
	ApproxAge         Variable = "ApproxAge"
	MeanCanalDepth    Variable = "meanCanalDepth"
	MeanCanalWidth    Variable = "meanCanalWidth"
	MeanDiscHeight    Variable = "meanDiscHeight"
	MeanDiscWedge     Variable = "meanDiscWedge"
	MeanFacetAngle    Variable = "meanFacetAngle"
	MeanVBDepth       Variable = "meanVBdepth"
	MeanVBHeight      Variable = "meanVBheight"
	MeanVBWidth       Variable = "meanVBwidth"
	MeanVBWedge       Variable = "meanVBwedge"
)

// VariableKind groups variables by how y is interpreted.
type VariableKind int

const (
	KindClassification VariableKind = iota // 0 = absent, 1 = present
	KindAge                                // years
	KindMeasurement                        // millimetres or degrees
)

// String returns a human-readable kind name.
func (k VariableKind) String() string {
	switch k {
	case KindClassification:
		return "classification"
	case KindAge:
		return "age"
	case KindMeasurement:
		return "measurement"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// VariableInfo documents a variable and the range observed in the training
// population. The range is informational; the model itself carries its own
// statistics in the <var>_y table.
type VariableInfo struct {
	Variable    Variable
	Kind        VariableKind
	Unit        string
	Description string
	ObservedMin float64
	ObservedMax float64
}

var variables = []VariableInfo{
	{DiscBulge, KindClassification, "", "0 = no disc herniation, 1 = disc herniation", 0, 1},
	{Spondylolisthesis, KindClassification, "", "0 = no spondylolisthesis, 1 = spondylolisthesis", 0, 1},
	{Female, KindClassification, "", "sex: 0 = male, 1 = female", 0, 1},
	{ApproxAge, KindAge, "years", "approximate age", 30, 90},
	{MeanCanalDepth, KindMeasurement, "mm", "mean spinal canal depth", 13.0, 20.4},
	{MeanCanalWidth, KindMeasurement, "mm", "mean spinal canal width", 21.5, 31.8},
	{MeanDiscHeight, KindMeasurement, "mm", "mean intervertebral disc height", 3.1, 11.4},
	{MeanDiscWedge, KindMeasurement, "deg", "mean disc wedge angle", 0.4, 11.6},
	{MeanFacetAngle, KindMeasurement, "deg", "mean facet joint angle", 27.6, 85.8},
	{MeanVBDepth, KindMeasurement, "mm", "mean vertebral body depth", 29.5, 42.0},
	{MeanVBHeight, KindMeasurement, "mm", "mean vertebral body height", 23.5, 32.4},
	{MeanVBWidth, KindMeasurement, "mm", "mean vertebral body width", 39.4, 58.8},
	{MeanVBWedge, KindMeasurement, "deg", "mean vertebral body wedge angle", -3.5, 8.7},
}

// Variables returns every modelled variable in documentation order.
func Variables() []VariableInfo {
	out := make([]VariableInfo, len(variables))
	copy(out, variables)
	return out
}

// ParseVariable resolves a variable name. Matching ignores case but the
// canonical spelling is returned.
func ParseVariable(name string) (Variable, error) {
	name = strings.TrimSpace(name)
	for _, info := range variables {
		if strings.EqualFold(string(info.Variable), name) {
			return info.Variable, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariable, name)
}

// Info returns the documentation entry for v.
func (v Variable) Info() (VariableInfo, bool) {
	for _, info := range variables {
		if info.Variable == v {
			return info, true
		}
	}
	return VariableInfo{}, false
}

// Valid reports whether v is one of the modelled variables.
func (v Variable) Valid() bool {
	_, ok := v.Info()
	return ok
}

func (v Variable) String() string {
	return string(v)
}
