package beam

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	autosched "github.com/pipelinekit/autosched"
)

// randomDropout decides whether to drop a beam search state. Used for
// randomly exploring the search tree for autotuning and to generate
// training data.
func randomDropout(rng *rand.Rand, threshold float64, numDecisions int) bool {
	if threshold >= 100 {
		return false
	}
	// The threshold is the chance that we operate entirely greedily
	// and never discard anything, so amortize it across decisions.
	t := threshold / 100
	t = math.Pow(t, 1.0/float64(numDecisions))
	t *= 100

	r := float64(rng.Uint32() % 100)
	return r >= t
}

// SearchPass runs a single pass of beam search and returns its best
// terminal state.
func SearchPass(dag *autosched.FunctionDAG, params autosched.MachineParams,
	model CostModel, rng *rand.Rand, beamSize, passIdx, numPasses int,
	tick *ProgressBar, permittedHashes map[uint64]bool, stats *Statistics,
	frozen *FreezeMaps, opts *SearchOptions) (*State, error) {

	log := opts.logger()
	configureCostModel(dag, params, model)

	var q, pending StateQueue
	q.Emplace(NewInitialState())

	expanded := 0
	var enqueueErr error

	enqueueNewChildren := func(child *State) {
		// Each child must have one more decision made than its
		// parent state.
		internalAssertf(child.NumDecisionsMade == child.Parent.NumDecisionsMade+1,
			"child has %d decisions, parent has %d", child.NumDecisionsMade, child.Parent.NumDecisionsMade)

		progress := child.NumDecisionsMade*beamSize + expanded
		maxProgress := len(dag.Nodes) * beamSize * 2
		tick.Set(float64(progress) / float64(maxProgress))

		child.Penalized = false
		stats.NumStatesAdded++

		t0 := time.Now()
		if err := model.EnqueueState(child); err != nil && enqueueErr == nil {
			enqueueErr = fmt.Errorf("cost model enqueue: %w", err)
		}
		stats.EnqueueTime += time.Since(t0)
		stats.NumSchedulesEnqueued++
		stats.NumFeaturizations++

		q.Emplace(child)
	}

	// Beam search over the sequence of decisions to make.
	for {
		hashes := map[uint64]int{}
		q.Swap(&pending)

		if pending.Empty() {
			if opts.RestartOnMortality && beamSize < 1000 {
				// Total mortality. Double the beam size and restart.
				log.Warnf("total mortality; restarting with beam size %d", beamSize*2)
				return SearchPass(dag, params, model, rng, beamSize*2, passIdx,
					numPasses, tick, permittedHashes, stats, frozen, opts)
			}
			internalAssertf(false, "ran out of legal states with beam size %d", beamSize)
		}

		if pending.Size() > beamSize*10000 {
			log.Warnf("huge number of states generated (%d)", pending.Size())
		}

		expanded = 0
		for expanded < beamSize && !pending.Empty() {
			state := pending.Pop()

			if beamSize > 1 && numPasses > 1 && passIdx >= 0 {
				// Coarse-to-fine beam search: lazily penalize states
				// in proportion to how many we have already seen with
				// the same structural hash.
				if !state.Penalized {
					h1 := state.StructuralHash(passIdx + 1)
					h0 := state.StructuralHash(passIdx - 1)
					hashes[h1]++
					penalty := hashes[h1]
					if passIdx > 0 && !permittedHashes[h0] {
						// The coarser hash was not blessed by the
						// previous pass. Apply a huge penalty but
						// leave the state in the beam.
						penalty += opts.ImpermissiblePenalty
					}
					if penalty > 1 {
						state.Penalized = true
						state.Cost *= float64(penalty)
						for i := range state.CostPerStage {
							state.CostPerStage[i] *= float64(penalty)
						}
						// If the state is no longer the best, defer
						// it rather than expanding it.
						if !pending.Empty() && state.Cost > pending.Top().Cost {
							pending.Emplace(state)
							continue
						}
					}
				}
			}

			// Random dropout. Never drop the last state standing.
			if pending.Size() > 1 && randomDropout(rng, opts.RandomDropoutPercent, len(dag.Nodes)*2) {
				continue
			}

			if state.IsTerminal(dag) {
				// End of the pass. The first terminal state off the
				// queue is the best.
				best := state

				// Bless the reasonable states in the beam as
				// permissible refinements for the next pass.
				if passIdx >= 0 && passIdx+1 < numPasses {
					blessed := 0
					for state.Cost <= (1+opts.BlessingSlack)*best.Cost && blessed < beamSize {
						for s := state; s != nil; s = s.Parent {
							permittedHashes[s.StructuralHash(passIdx)] = true
						}
						if pending.Empty() {
							break
						}
						state = pending.Pop()
						blessed++
					}
				}

				return best, nil
			}

			t0 := time.Now()
			state.GenerateChildren(dag, opts, frozen, enqueueNewChildren)
			stats.GenerateChildrenTime += time.Since(t0)
			expanded++

			if enqueueErr != nil {
				return nil, enqueueErr
			}
		}

		// Drop the other states unconsidered.
		pending.Clear()

		t0 := time.Now()
		if err := model.EvaluateCosts(); err != nil {
			return nil, fmt.Errorf("cost model evaluation: %w", err)
		}
		stats.CostModelEvaluationTime += time.Since(t0)
		q.Resort()

		for j := 0; j < q.Size(); j++ {
			if math.IsInf(q.At(j).Cost, 0) {
				log.Warnf("infinite cost on intermediate state with %d decisions",
					q.At(j).NumDecisionsMade)
			}
		}

		if opts.Selection != nil {
			// The user is navigating the search space manually.
			// Discard everything but the chosen option.
			states := make([]*State, q.Size())
			for j := range states {
				states[j] = q.At(j)
			}
			chosen := states[opts.Selection.Select(states)]
			q.Clear()
			q.Emplace(chosen)
		}
	}
}

// freezeLowestCostStages uses the pre-pass winner to freeze most of
// the pipeline: nodes are ranked by their summed per-stage cost and
// all but the most expensive few keep the placement the pre-pass chose.
func freezeLowestCostStages(dag *autosched.FunctionDAG, best *State, frozen *FreezeMaps, log Logger) {
	type nodeCost struct {
		id   int
		cost float64
	}
	costs := map[int]float64{}
	numNodes := 0
	for _, n := range dag.Nodes {
		if n.IsInput {
			continue
		}
		numNodes++
		for _, s := range n.Stages {
			if s.ID < len(best.CostPerStage) {
				costs[n.ID] += best.CostPerStage[s.ID]
			}
		}
	}

	ranked := make([]nodeCost, 0, len(costs))
	for id, c := range costs {
		ranked = append(ranked, nodeCost{id: id, cost: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].cost != ranked[j].cost {
			return ranked[i].cost < ranked[j].cost
		}
		return ranked[i].id < ranked[j].id
	})

	numToFreeze := numNodes - int(math.Log2(float64(numNodes)))
	toFreeze := map[int]bool{}
	for i := 0; i < numToFreeze && i < len(ranked); i++ {
		toFreeze[ranked[i].id] = true
		log.Infof("freezing %s with cost %g", dag.Nodes[ranked[i].id].Func.Name, ranked[i].cost)
	}

	if frozen.InlinedNodes == nil {
		frozen.InlinedNodes = map[int]bool{}
	}
	if frozen.ComputeRootNodes == nil {
		frozen.ComputeRootNodes = map[int][]*LoopNest{}
	}
	for id := range best.Root.Inlined {
		if toFreeze[id] {
			frozen.InlinedNodes[id] = true
		}
	}
	for _, c := range best.Root.Children {
		if c.Node != nil && toFreeze[c.Node.ID] {
			frozen.ComputeRootNodes[c.Node.ID] = append(frozen.ComputeRootNodes[c.Node.ID],
				c.CloneWithInlinedCleared())
			log.Infof("freezing as compute_root: %s", c.Node.Func.Name)
		}
	}
}

// Search runs the coarse-to-fine beam search and returns the best
// state found across all passes, with the accumulated statistics.
func Search(dag *autosched.FunctionDAG, params autosched.MachineParams,
	model CostModel, opts SearchOptions) (*State, *Statistics, error) {

	log := opts.logger()
	stats := &Statistics{Started: time.Now()}
	rng := rand.New(rand.NewSource(int64(opts.RandomSeed)))

	permittedHashes := map[uint64]bool{}
	numPasses := opts.effectiveNumPasses()

	passIdx := 0
	if opts.FreezeInlineComputeRoot {
		passIdx = -1
		if numPasses > 1 {
			numPasses--
		}
	}

	frozen := &FreezeMaps{}
	var best *State

	for ; passIdx < numPasses; passIdx++ {
		tick := opts.Progress
		if tick == nil {
			tick = NewProgressBar(nil)
		}

		pass, err := SearchPass(dag, params, model, rng, opts.BeamSize, passIdx,
			numPasses, tick, permittedHashes, stats, frozen, &opts)
		tick.Clear()
		if err != nil {
			return nil, stats, err
		}

		log.Infof("pass %d of %d, cost %g", passIdx+1, numPasses, pass.Cost)

		if passIdx == -1 {
			freezeLowestCostStages(dag, pass, frozen, log)
		}

		if passIdx >= 0 && (passIdx == 0 || pass.Cost < best.Cost) {
			// Track which pass produced the lowest-cost state. It is
			// not necessarily the final one.
			best = pass
		}
	}

	stats.Finished = time.Now()
	log.Infof("best cost: %g", best.Cost)
	return best, stats, nil
}
