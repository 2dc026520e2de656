package main

import (
	"fmt"
	"os"

	autosched "github.com/pipelinekit/autosched"
	"github.com/pipelinekit/autosched/ir"
)

func main() {
	pipelines := map[string][]*ir.Func{
		"pointwise":         ir.DemoPointwise(256, 256),
		"producer-consumer": ir.DemoProducerConsumer(256, 256),
		"diamond":           ir.DemoDiamond(256, 256),
		"scan":              ir.DemoScan(256, 256),
		"boundary":          ir.DemoBoundary(256, 256),
	}

	names := []string{"pointwise", "producer-consumer", "diamond", "scan", "boundary"}
	if len(os.Args) > 1 {
		names = os.Args[1:]
	}

	params := autosched.DefaultMachineParams()
	target := autosched.DefaultTarget()

	for _, name := range names {
		outputs, ok := pipelines[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown pipeline %q\n", name)
			os.Exit(1)
		}
		fmt.Printf("\n=== %s ===\n", name)
		dag := autosched.NewFunctionDAG(outputs, params, target)
		dag.Dump(os.Stdout)
	}
}
