package beam

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SearchOptions configure the beam search.
type SearchOptions struct {
	// BeamSize is the width of the beam. 1 gives a greedy single
	// pass. (default: 32)
	BeamSize int `yaml:"beam_size"`

	// NumPasses is the coarse-to-fine pass count; 0 means 5. It is
	// ignored when BeamSize is 1 or a selection policy is installed:
	// those searches always run a single pass.
	NumPasses int `yaml:"num_passes"`

	// RandomDropoutPercent in [0, 100] is the chance of accepting
	// any state, amortized across decisions. 100 disables dropout.
	RandomDropoutPercent float64 `yaml:"random_dropout_percent"`

	// RandomSeed seeds the dropout RNG.
	RandomSeed uint32 `yaml:"random_seed"`

	// Selection, when non-nil, turns on interactive navigation: the
	// policy picks the single state kept after each expansion round.
	Selection SelectionPolicy `yaml:"-"`

	// FreezeInlineComputeRoot enables the pass_idx = -1 pre-pass that
	// freezes the lowest-cost stages before the real passes run.
	FreezeInlineComputeRoot bool `yaml:"freeze_inline_compute_root"`

	// NoSubtiling constrains child generation to a simpler schedule
	// family.
	NoSubtiling bool `yaml:"no_subtiling"`

	// PermitFailedUnroll is passed through to the compiler when the
	// chosen schedule is applied; it does not affect the search.
	PermitFailedUnroll bool `yaml:"permit_failed_unroll"`

	// BlessingSlack is the relative cost margin within which states
	// have their hashes blessed for the next pass. (default: 0.2)
	BlessingSlack float64 `yaml:"blessing_slack"`

	// ImpermissiblePenalty is added to the penalty of states whose
	// coarse hash was not blessed by the previous pass. (default: 10)
	ImpermissiblePenalty int `yaml:"impermissible_penalty"`

	// RestartOnMortality doubles the beam and restarts the pass when
	// every state dies. Off by default: total mortality usually
	// indicates a bug, so it is fatal.
	RestartOnMortality bool `yaml:"restart_on_mortality"`

	// Logger receives search diagnostics. Nil means no logging.
	Logger Logger `yaml:"-"`

	// Progress receives the progress bar. Nil means os.Stderr.
	Progress *ProgressBar `yaml:"-"`
}

// DefaultOptions returns the default search configuration.
func DefaultOptions() SearchOptions {
	return SearchOptions{
		BeamSize:             32,
		RandomDropoutPercent: 100,
		BlessingSlack:        0.2,
		ImpermissiblePenalty: 10,
	}
}

// OptionsFromEnv overlays the AS_* environment variables onto opts,
// mirroring the environment surface of the wider toolchain.
func OptionsFromEnv(opts SearchOptions) (SearchOptions, error) {
	var err error
	if v := os.Getenv("AS_BEAM_SIZE"); v != "" {
		if opts.BeamSize, err = strconv.Atoi(v); err != nil {
			return opts, fmt.Errorf("bad AS_BEAM_SIZE: %w", err)
		}
	}
	if v := os.Getenv("AS_NUM_PASSES"); v != "" {
		if opts.NumPasses, err = strconv.Atoi(v); err != nil {
			return opts, fmt.Errorf("bad AS_NUM_PASSES: %w", err)
		}
	}
	if v := os.Getenv("AS_RANDOM_DROPOUT"); v != "" {
		if opts.RandomDropoutPercent, err = strconv.ParseFloat(v, 64); err != nil {
			return opts, fmt.Errorf("bad AS_RANDOM_DROPOUT: %w", err)
		}
	}
	if v := os.Getenv("AS_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return opts, fmt.Errorf("bad AS_SEED: %w", err)
		}
		opts.RandomSeed = uint32(seed)
	}
	if os.Getenv("AS_CYOS") == "1" {
		opts.Selection = NewStdinPolicy(os.Stdin, os.Stdout)
	}
	if os.Getenv("AS_FREEZE_INLINE_COMPUTE_ROOT") == "1" {
		opts.FreezeInlineComputeRoot = true
	}
	if os.Getenv("AS_NO_SUBTILING") == "1" {
		opts.NoSubtiling = true
	}
	if os.Getenv("AS_PERMIT_FAILED_UNROLL") == "1" {
		opts.PermitFailedUnroll = true
	}
	return opts, nil
}

// LoadOptions reads YAML search options, overlaid on the defaults.
func LoadOptions(data []byte) (SearchOptions, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("could not parse search options: %w", err)
	}
	if opts.BeamSize < 1 {
		return opts, fmt.Errorf("beam_size must be at least 1, got %d", opts.BeamSize)
	}
	if opts.RandomDropoutPercent < 0 || opts.RandomDropoutPercent > 100 {
		return opts, fmt.Errorf("random_dropout_percent must be in [0, 100], got %g", opts.RandomDropoutPercent)
	}
	return opts, nil
}

// effectiveNumPasses resolves the pass count for this configuration.
func (o *SearchOptions) effectiveNumPasses() int {
	if o.BeamSize == 1 || o.Selection != nil {
		// Greedy or manual navigation: multiple passes are pointless.
		return 1
	}
	if o.NumPasses > 0 {
		return o.NumPasses
	}
	return 5
}

func (o *SearchOptions) logger() Logger {
	if o.Logger == nil {
		return NewNoopLogger()
	}
	return o.Logger
}
