package ir

import "fmt"

// ScalarType classifies the storage type of a pipeline function. The
// featurization histograms are bucketed by these classes.
type ScalarType int

const (
	TypeBool ScalarType = iota
	TypeUInt8
	TypeUInt16
	TypeUInt32
	TypeUInt64
	TypeFloat
	TypeDouble

	NumScalarTypes
)

func (t ScalarType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeUInt8:
		return "uint8"
	case TypeUInt16:
		return "uint16"
	case TypeUInt32:
		return "uint32"
	case TypeUInt64:
		return "uint64"
	case TypeFloat:
		return "float32"
	case TypeDouble:
		return "float64"
	}
	return "unknown"
}

// Bytes returns the storage size of one point of this type.
func (t ScalarType) Bytes() int {
	switch t {
	case TypeBool, TypeUInt8:
		return 1
	case TypeUInt16:
		return 2
	case TypeUInt32, TypeFloat:
		return 4
	default:
		return 8
	}
}

// Estimate is a user-supplied bound estimate for one output dimension.
type Estimate struct {
	Min, Extent int64
}

// RVar is a reduction loop with constant bounds.
type RVar struct {
	Name        string
	Min, Extent int64
}

// StageDef is one definition of a Func: the pure definition or an
// update. Updates may carry reduction loops and may store at
// coordinates other than the pure variables.
type StageDef struct {
	// RVars are the reduction loops of this stage, innermost first.
	RVars []RVar

	// StoreArgs are the coordinates written, one per dimension. Nil
	// means the pure variables (the common case for stage 0).
	StoreArgs []Expr

	// Values are the value expressions; Call nodes inside them are
	// the loads this stage performs.
	Values []Expr
}

// Func is one function in a pipeline: a name, a coordinate domain, a
// storage type, and one or more definitions. Input buffers are Funcs
// with IsInput set and no stages.
type Func struct {
	Name      string
	Dims      []string
	Type      ScalarType
	IsInput   bool
	Estimates []Estimate
	Stages    []StageDef
}

// NewFunc returns a Func over the given pure variables.
func NewFunc(name string, typ ScalarType, dims ...string) *Func {
	return &Func{Name: name, Dims: dims, Type: typ}
}

// Input returns an input buffer placeholder with the given extent
// estimates, one per dimension.
func Input(name string, typ ScalarType, extents ...int64) *Func {
	f := &Func{Name: name, Type: typ, IsInput: true}
	for i, e := range extents {
		f.Dims = append(f.Dims, fmt.Sprintf("v%d", i))
		f.Estimates = append(f.Estimates, Estimate{Min: 0, Extent: e})
	}
	return f
}

// Define sets the pure definition of f and returns f.
func (f *Func) Define(values ...Expr) *Func {
	if len(f.Stages) > 0 {
		panic("ir: Define called twice on " + f.Name)
	}
	f.Stages = append(f.Stages, StageDef{Values: values})
	return f
}

// Update appends an update definition and returns f.
func (f *Func) Update(stage StageDef) *Func {
	if len(f.Stages) == 0 {
		panic("ir: Update before Define on " + f.Name)
	}
	f.Stages = append(f.Stages, stage)
	return f
}

// Estimate records an output bound estimate for each dimension and
// returns f.
func (f *Func) Estimate(estimates ...Estimate) *Func {
	f.Estimates = estimates
	return f
}

// PureArgs returns the pure variables of f as expressions.
func (f *Func) PureArgs() []Expr {
	args := make([]Expr, len(f.Dims))
	for i, d := range f.Dims {
		args[i] = V(d)
	}
	return args
}
