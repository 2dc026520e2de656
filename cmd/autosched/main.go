// Command autosched runs the beam search end to end on one of the
// demo pipelines with the heuristic cost model, and prints the chosen
// schedule and a YAML report.
package main

import (
	"flag"
	"fmt"
	"os"

	yaml "github.com/itchyny/go-yaml"

	autosched "github.com/pipelinekit/autosched"
	"github.com/pipelinekit/autosched/beam"
	"github.com/pipelinekit/autosched/ir"
	"github.com/pipelinekit/autosched/pkg/schedfmt"
)

type report struct {
	Pipeline  string   `yaml:"pipeline"`
	BestCost  float64  `yaml:"best_cost"`
	Decisions int      `yaml:"decisions"`
	Schedule  []string `yaml:"schedule"`
}

func main() {
	pipeline := flag.String("pipeline", "producer-consumer", "demo pipeline to schedule")
	configPath := flag.String("config", "", "YAML search options file")
	size := flag.Int64("size", 1024, "output extent per dimension")
	flag.Parse()

	if err := run(*pipeline, *configPath, *size); err != nil {
		fmt.Fprintf(os.Stderr, "autosched: %v\n", err)
		os.Exit(1)
	}
}

func run(pipeline, configPath string, size int64) error {
	var outputs []*ir.Func
	switch pipeline {
	case "pointwise":
		outputs = ir.DemoPointwise(size, size)
	case "producer-consumer":
		outputs = ir.DemoProducerConsumer(size, size)
	case "diamond":
		outputs = ir.DemoDiamond(size, size)
	case "four-stage":
		outputs = ir.DemoFourStage(size, size)
	case "scan":
		outputs = ir.DemoScan(size, size)
	case "boundary":
		outputs = ir.DemoBoundary(size, size)
	default:
		return fmt.Errorf("unknown pipeline %q", pipeline)
	}

	opts := beam.DefaultOptions()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("could not read config: %w", err)
		}
		if opts, err = beam.LoadOptions(data); err != nil {
			return err
		}
	}
	opts, err := beam.OptionsFromEnv(opts)
	if err != nil {
		return err
	}
	if opts.Logger == nil {
		opts.Logger = beam.NewLogger(beam.ParseLogLevel(os.Getenv("AS_LOG_LEVEL")), os.Stderr)
	}

	params := autosched.DefaultMachineParams()
	target := autosched.DefaultTarget()
	dag := autosched.NewFunctionDAG(outputs, params, target)

	model := beam.NewFootprintModel(dag)
	best, stats, err := beam.Search(dag, params, model, opts)
	if err != nil {
		return err
	}

	src, err := schedfmt.Format(dag, best, schedfmt.SchedFmtCfg{
		ShowLoopExtents: true,
		ShowCosts:       true,
	})
	if err != nil {
		return err
	}
	fmt.Println("// --- BEGIN machine-generated schedule")
	fmt.Print(src)
	fmt.Println("// --- END machine-generated schedule")

	stats.Report(os.Stderr)

	rep := report{
		Pipeline:  pipeline,
		BestCost:  best.Cost,
		Decisions: best.NumDecisionsMade,
	}
	for _, line := range splitLines(src) {
		if line != "" {
			rep.Schedule = append(rep.Schedule, line)
		}
	}
	out, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("could not encode report: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
