package autosched

// LoadJacobian records the derivative of the coordinate accessed in
// some producer with respect to the loop variables of the consumer.
// Rows are producer storage dimensions, columns are consumer loop
// dimensions. Identical Jacobians are deduplicated by keeping a count
// of how many loads share the matrix.
type LoadJacobian struct {
	coeffs     []OptionalRational
	count      int64
	rows, cols int
}

// NewLoadJacobian returns a zeroed rows x cols Jacobian with the given
// load count.
func NewLoadJacobian(producerStorageDims, consumerLoopDims int, count int64) *LoadJacobian {
	return &LoadJacobian{
		coeffs: make([]OptionalRational, producerStorageDims*consumerLoopDims),
		count:  count,
		rows:   producerStorageDims,
		cols:   consumerLoopDims,
	}
}

// AllCoeffsExist reports whether no entry is the undefined rational.
func (j *LoadJacobian) AllCoeffsExist() bool {
	for _, c := range j.coeffs {
		if !c.Exists() {
			return false
		}
	}
	return true
}

// Empty reports whether the producer is scalar.
func (j *LoadJacobian) Empty() bool {
	return j.rows == 0
}

func (j *LoadJacobian) ProducerStorageDims() int { return j.rows }
func (j *LoadJacobian) ConsumerLoopDims() int    { return j.cols }

// IsConstant reports whether every coefficient exists and is zero.
func (j *LoadJacobian) IsConstant() bool {
	for _, c := range j.coeffs {
		if !c.Exists() || !c.EqualsInt(0) {
			return false
		}
	}
	return true
}

// At returns the coefficient for the given producer storage dimension
// and consumer loop dimension. If either side is scalar all strides
// are the exact zero (0, 1).
func (j *LoadJacobian) At(producerStorageDim, consumerLoopDim int) OptionalRational {
	if j.rows == 0 || j.cols == 0 {
		return OptionalRational{Num: 0, Den: 1}
	}
	return j.coeffs[producerStorageDim*j.cols+consumerLoopDim]
}

// Set stores a coefficient.
func (j *LoadJacobian) Set(producerStorageDim, consumerLoopDim int, c OptionalRational) {
	j.coeffs[producerStorageDim*j.cols+consumerLoopDim] = c
}

// Count returns the number of loads sharing this Jacobian.
func (j *LoadJacobian) Count() int64 { return j.count }

// Merge folds other into j if the dimensions and every coefficient
// match, accumulating the count. Reports whether the merge happened.
func (j *LoadJacobian) Merge(other *LoadJacobian) bool {
	if other.rows != j.rows || other.cols != j.cols {
		return false
	}
	for i := range j.coeffs {
		if !other.coeffs[i].Equals(j.coeffs[i]) {
			return false
		}
	}
	j.count += other.count
	return true
}

// MulFactors scales column i by factors[i].
func (j *LoadJacobian) MulFactors(factors []int64) *LoadJacobian {
	internalAssert(len(factors) == j.cols, "jacobian scale: %d factors for %d columns", len(factors), j.cols)
	result := NewLoadJacobian(j.rows, j.cols, j.count)
	for i := 0; i < j.rows; i++ {
		for k := 0; k < j.cols; k++ {
			result.Set(i, k, j.At(i, k).MulInt(factors[k]))
		}
	}
	return result
}

// Mul composes Jacobians, used to chase memory dependencies through
// inlined functions. Requires j.cols == other.rows. Counts multiply:
// each load through the inlined call occurs once per occurrence of
// either side.
func (j *LoadJacobian) Mul(other *LoadJacobian) *LoadJacobian {
	internalAssert(j.cols == other.rows,
		"jacobian compose: %dx%d * %dx%d", j.rows, j.cols, other.rows, other.cols)
	result := NewLoadJacobian(j.rows, other.cols, j.count*other.count)
	for i := 0; i < j.rows; i++ {
		for k := 0; k < other.cols; k++ {
			cell := OptionalRational{Num: 0, Den: 1}
			for m := 0; m < j.cols; m++ {
				cell.Add(j.At(i, m).Mul(other.At(m, k)))
			}
			result.Set(i, k, cell)
		}
	}
	return result
}
