package beam

import (
	"fmt"
	"io"
	"time"

	"github.com/itchyny/timefmt-go"
)

// Statistics accumulates counters and per-phase times over a search.
type Statistics struct {
	NumStatesAdded       int
	NumFeaturizations    int
	NumMemoizationHits   int
	NumMemoizationMisses int
	NumSchedulesEnqueued int

	GenerateChildrenTime    time.Duration
	CostModelEvaluationTime time.Duration
	EnqueueTime             time.Duration

	Started  time.Time
	Finished time.Time
}

const statsStampFormat = "%Y-%m-%d %H:%M:%S"

// Report writes the statistics block.
func (st *Statistics) Report(w io.Writer) {
	fmt.Fprintf(w, "Search started: %s\n", timefmt.Format(st.Started, statsStampFormat))
	fmt.Fprintf(w, "Search finished: %s\n", timefmt.Format(st.Finished, statsStampFormat))
	fmt.Fprintf(w, "Number of states added: %d\n", st.NumStatesAdded)
	fmt.Fprintf(w, "Number of featurizations computed: %d\n", st.NumFeaturizations)
	fmt.Fprintf(w, "Number of memoization hits: %d\n", st.NumMemoizationHits)
	fmt.Fprintf(w, "Number of memoization misses: %d\n", st.NumMemoizationMisses)
	fmt.Fprintf(w, "Number of schedules evaluated by cost model: %d\n", st.NumSchedulesEnqueued)
	fmt.Fprintf(w, "Total generate children time (ms): %d\n", st.GenerateChildrenTime.Milliseconds())
	fmt.Fprintf(w, "Total enqueue time (ms): %d\n", st.EnqueueTime.Milliseconds())
	fmt.Fprintf(w, "Total cost model evaluation time (ms): %d\n", st.CostModelEvaluationTime.Milliseconds())
	fmt.Fprintf(w, "Time taken for autoscheduler (s): %.3f\n", st.Finished.Sub(st.Started).Seconds())
}
