package reactor

import (
	"path/filepath"
	"time"
)

const defaultDrainTicks = 3

// RunConfig tunes the run loop. Zero values are replaced by the defaults at
// the point of use, so a partially fed config stays usable.
type RunConfig struct {
	// PollTimeout is the budget handed to event sources each tick. Negative
	// means block until a source produces or a foreign fire wakes the root.
	PollTimeout time.Duration `yaml:"pollTimeout" toml:"pollTimeout" env:"POLL_TIMEOUT"`

	// DrainTicks is how many final ticks Stop runs to drain stragglers.
	DrainTicks int `yaml:"drainTicks" toml:"drainTicks" env:"DRAIN_TICKS"`
}

// DefaultRunConfig returns the configuration Run uses when none is supplied.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		PollTimeout: -1,
		DrainTicks:  defaultDrainTicks,
	}
}

// LoadRunConfig starts from the defaults and applies each feeder in order,
// later feeders overriding earlier ones.
func LoadRunConfig(feeders ...Feeder) (RunConfig, error) {
	cfg := DefaultRunConfig()
	for _, f := range feeders {
		if err := f.Feed(&cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// RunConfigFromFile loads a RunConfig from a YAML or TOML file, selected by
// extension, with environment overrides applied on top.
func RunConfigFromFile(path string) (RunConfig, error) {
	var feeder Feeder
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		feeder = NewYamlFeeder(path)
	case ".toml":
		feeder = NewTomlFeeder(path)
	default:
		return DefaultRunConfig(), ErrConfigUnsupportedFormat
	}
	return LoadRunConfig(feeder, NewEnvFeeder("REACTOR"))
}
