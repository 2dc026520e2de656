package autosched

import (
	"github.com/pipelinekit/autosched/ir"
)

// The pipeline featurization is a fixed-size record per stage,
// consumed by the cost model as a Head1W x Head1H image. The first
// NumScalarTypes ints are a mask of which types are in use and are
// skipped when packing for the model.
const (
	Head1W = 40
	Head1H = int(ir.NumScalarTypes)
)

// OpType classifies the expression nodes counted in the histogram.
type OpType int

const (
	OpTypeConst OpType = iota
	OpTypeCast
	OpTypeVariable
	OpTypeParam
	OpTypeAdd
	OpTypeSub
	OpTypeMod
	OpTypeMul
	OpTypeDiv
	OpTypeMin
	OpTypeMax
	OpTypeEQ
	OpTypeNE
	OpTypeLT
	OpTypeLE
	OpTypeAnd
	OpTypeOr
	OpTypeNot
	OpTypeSelect
	OpTypeImageCall
	OpTypeFuncCall
	OpTypeSelfCall
	OpTypeExternCall
	OpTypeLet

	NumOpTypes
)

// AccessType classifies the memory accesses counted in the pattern
// matrices.
type AccessType int

const (
	AccessLoadFunc AccessType = iota
	AccessLoadSelf
	AccessLoadImage
	AccessStore

	NumAccessTypes
)

// PipelineFeatures is the per-stage featurization of the compute done.
// Counts are bucketed by the scalar type class of the value produced.
type PipelineFeatures struct {
	TypesInUse [ir.NumScalarTypes]int32

	OpHistogram [NumOpTypes][ir.NumScalarTypes]int32

	// Memory access patterns, by the kind of Jacobian the access has.
	PointwiseAccesses [NumAccessTypes][ir.NumScalarTypes]int32
	TransposeAccesses [NumAccessTypes][ir.NumScalarTypes]int32
	BroadcastAccesses [NumAccessTypes][ir.NumScalarTypes]int32
	SliceAccesses     [NumAccessTypes][ir.NumScalarTypes]int32
}

// Slice returns the feature ints after the types-in-use mask, in
// declaration order. Its length is always Head1W * Head1H.
func (p *PipelineFeatures) Slice() []int32 {
	out := make([]int32, 0, Head1W*Head1H)
	for i := range p.OpHistogram {
		out = append(out, p.OpHistogram[i][:]...)
	}
	for _, m := range []*[NumAccessTypes][ir.NumScalarTypes]int32{
		&p.PointwiseAccesses, &p.TransposeAccesses, &p.BroadcastAccesses, &p.SliceAccesses,
	} {
		for i := range m {
			out = append(out, m[i][:]...)
		}
	}
	internalAssert(len(out) == Head1W*Head1H,
		"pipeline features pack to %d ints, want %d", len(out), Head1W*Head1H)
	return out
}

// countOps walks a value expression and fills in the op histogram for
// a stage of the given func.
func (p *PipelineFeatures) countOps(e ir.Expr, self *ir.Func, tc ir.ScalarType) {
	p.TypesInUse[tc] = 1
	switch t := e.(type) {
	case ir.Const:
		p.OpHistogram[OpTypeConst][tc]++
	case ir.Var:
		p.OpHistogram[OpTypeVariable][tc]++
	case ir.Bin:
		switch t.Op {
		case ir.OpAdd:
			p.OpHistogram[OpTypeAdd][tc]++
		case ir.OpSub:
			p.OpHistogram[OpTypeSub][tc]++
		case ir.OpMul:
			p.OpHistogram[OpTypeMul][tc]++
		case ir.OpDiv:
			p.OpHistogram[OpTypeDiv][tc]++
		case ir.OpMod:
			p.OpHistogram[OpTypeMod][tc]++
		case ir.OpMin:
			p.OpHistogram[OpTypeMin][tc]++
		case ir.OpMax:
			p.OpHistogram[OpTypeMax][tc]++
		}
		p.countOps(t.A, self, tc)
		p.countOps(t.B, self, tc)
	case ir.Clamp:
		// Boundary clamps lower to a min and a max.
		p.OpHistogram[OpTypeMin][tc]++
		p.OpHistogram[OpTypeMax][tc]++
		p.countOps(t.X, self, tc)
		p.countOps(t.Lo, self, tc)
		p.countOps(t.Hi, self, tc)
	case ir.Call:
		switch {
		case t.Func == self:
			p.OpHistogram[OpTypeSelfCall][tc]++
		case t.Func.IsInput:
			p.OpHistogram[OpTypeImageCall][tc]++
		default:
			p.OpHistogram[OpTypeFuncCall][tc]++
		}
		p.TypesInUse[t.Func.Type] = 1
		// Index arithmetic produces integer coordinates, not values of
		// the func's type; count it in the 32-bit integer class.
		for _, a := range t.Args {
			p.countOps(a, self, ir.TypeUInt32)
		}
	}
}

// jacobianPattern classifies a load or store by the shape of its
// Jacobian.
func jacobianPattern(j *LoadJacobian) (pointwise, transpose, broadcast, slice bool) {
	rows := j.ProducerStorageDims()
	cols := j.ConsumerLoopDims()

	pointwise = rows == cols
	if rows == cols {
		for i := 0; i < rows; i++ {
			for k := 0; k < cols; k++ {
				want := int64(0)
				if i == k {
					want = 1
				}
				if !j.At(i, k).EqualsInt(want) {
					pointwise = false
				}
			}
		}
	}
	if pointwise {
		return true, false, false, false
	}

	// Transpose: square permutation of the loop variables.
	if rows == cols {
		transpose = true
		for i := 0; i < rows && transpose; i++ {
			ones := 0
			for k := 0; k < cols; k++ {
				c := j.At(i, k)
				if c.EqualsInt(1) {
					ones++
				} else if !c.EqualsInt(0) {
					transpose = false
				}
			}
			if ones != 1 {
				transpose = false
			}
		}
	}

	// Broadcast: some loop dimension the access does not depend on.
	for k := 0; k < cols; k++ {
		zero := true
		for i := 0; i < rows; i++ {
			if !j.At(i, k).EqualsInt(0) {
				zero = false
				break
			}
		}
		if zero {
			broadcast = true
			break
		}
	}

	// Slice: fewer storage dimensions than loop dimensions.
	slice = rows < cols
	return false, transpose, broadcast, slice
}

func (p *PipelineFeatures) countAccess(kind AccessType, tc ir.ScalarType, j *LoadJacobian) {
	n := int32(j.Count())
	pointwise, transpose, broadcast, slice := jacobianPattern(j)
	if pointwise {
		p.PointwiseAccesses[kind][tc] += n
	}
	if transpose {
		p.TransposeAccesses[kind][tc] += n
	}
	if broadcast {
		p.BroadcastAccesses[kind][tc] += n
	}
	if slice {
		p.SliceAccesses[kind][tc] += n
	}
}
