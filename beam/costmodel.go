package beam

import (
	"math"

	autosched "github.com/pipelinekit/autosched"
)

// CostModel scores schedule states. The search treats it as a black
// box: features go in per pass, states are enqueued as they are
// generated, and a batch evaluation fills in every enqueued state's
// cost. The model may use internal parallelism; its API is
// synchronous.
type CostModel interface {
	// Reset discards any prior pipeline state.
	Reset()

	// SetPipelineFeatures is called once per pass. features is a
	// head1W x head1H x numNonInputStages tensor.
	SetPipelineFeatures(features *PipelineFeatureTensor, parallelism int)

	// EnqueueState records a pending evaluation for s.
	EnqueueState(s *State) error

	// EvaluateCosts populates Cost and CostPerStage on every state
	// enqueued since the last call.
	EvaluateCosts() error
}

// PipelineFeatureTensor is the packed featurization of every non-input
// stage, laid out [w][h][stage].
type PipelineFeatureTensor struct {
	W, H, Stages int
	Data         []float32
}

// At returns the element at (x, y, stage).
func (t *PipelineFeatureTensor) At(x, y, stage int) float32 {
	return t.Data[(x*t.H+y)*t.Stages+stage]
}

func (t *PipelineFeatureTensor) set(x, y, stage int, v float32) {
	t.Data[(x*t.H+y)*t.Stages+stage] = v
}

// PackPipelineFeatures builds the feature tensor for a pipeline. The
// first NumScalarTypes ints of each stage's features are a mask of the
// types in use and are skipped.
func PackPipelineFeatures(dag *autosched.FunctionDAG) *PipelineFeatureTensor {
	numStages := 0
	for _, n := range dag.Nodes {
		if !n.IsInput {
			numStages += len(n.Stages)
		}
	}
	t := &PipelineFeatureTensor{
		W:      autosched.Head1W,
		H:      autosched.Head1H,
		Stages: numStages,
		Data:   make([]float32, autosched.Head1W*autosched.Head1H*numStages),
	}
	stage := 0
	for _, n := range dag.Nodes {
		if n.IsInput {
			continue
		}
		// Stages in reverse, so updates precede their pure stage.
		for i := len(n.Stages) - 1; i >= 0; i-- {
			feats := n.Stages[i].Features.Slice()
			for j, v := range feats {
				x := j / autosched.Head1H
				y := j % autosched.Head1H
				t.set(x, y, stage, float32(v))
			}
			stage++
		}
	}
	if stage != numStages {
		panic(&autosched.InternalError{Msg: "pipeline feature stage count mismatch"})
	}
	return t
}

// configureCostModel points the model at this pipeline before a pass.
func configureCostModel(dag *autosched.FunctionDAG, params autosched.MachineParams, m CostModel) {
	m.Reset()
	m.SetPipelineFeatures(PackPipelineFeatures(dag), params.Parallelism)
}

// FootprintModel is a deterministic heuristic cost model so the
// autoscheduler is runnable without a trained network. It charges
// each scheduled stage for compute proportional to its feature
// opcount, penalizes unscheduled work lightly, and rewards inlining
// of cheap pointwise stages. It is not a good model; it is a stable
// one.
type FootprintModel struct {
	dag     *autosched.FunctionDAG
	pending []*State

	// points caches the realized point count per node id.
	points map[int]float64
}

// NewFootprintModel returns a FootprintModel for the given pipeline.
func NewFootprintModel(dag *autosched.FunctionDAG) *FootprintModel {
	m := &FootprintModel{dag: dag, points: make(map[int]float64, len(dag.Nodes))}
	bm := ComputeBounds(dag)
	for _, n := range dag.Nodes {
		b := bm.Bounds(n)
		p := 1.0
		for d := 0; d < n.Dimensions; d++ {
			p *= float64(b.RegionComputed(d).Extent())
		}
		m.points[n.ID] = p
	}
	bm.Release()
	return m
}

func (m *FootprintModel) Reset() {
	m.pending = m.pending[:0]
}

func (m *FootprintModel) SetPipelineFeatures(features *PipelineFeatureTensor, parallelism int) {
	// The heuristic reads the DAG directly; the tensor is validated
	// for shape and otherwise unused.
	if features.W != autosched.Head1W || features.H != autosched.Head1H {
		panic(&autosched.InternalError{Msg: "bad pipeline feature tensor shape"})
	}
}

func (m *FootprintModel) EnqueueState(s *State) error {
	m.pending = append(m.pending, s)
	return nil
}

func (m *FootprintModel) EvaluateCosts() error {
	for _, s := range m.pending {
		m.score(s)
	}
	m.pending = m.pending[:0]
	return nil
}

func (m *FootprintModel) score(s *State) {
	numStages := m.dag.NumStages()
	perStage := make([]float64, numStages)
	total := 0.0
	for _, n := range m.dag.Nodes {
		if n.IsInput {
			continue
		}
		points := m.points[n.ID]
		for _, st := range n.Stages {
			work := 1.0
			for i := range st.Features.OpHistogram {
				for _, c := range st.Features.OpHistogram[i] {
					work += float64(c)
				}
			}
			c := points * work * 1e-6
			switch s.Root.ComputeDecision(n.ID) {
			case computeUndecided:
				c *= 1.5 // pessimistic until scheduled
			case computeInlined:
				c *= 0.5
			case computeRoot:
				c += points * n.BytesPerPoint * 1e-7 // memory traffic at the root
			}
			if s.Root.TilingDecided(n.ID) {
				c *= 0.9
			}
			perStage[st.ID] = c
			total += c
		}
	}
	if math.IsNaN(total) {
		total = math.Inf(1)
	}
	s.Cost = total
	s.CostPerStage = perStage
}
