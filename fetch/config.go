package fetch

import (
	"fmt"
	"time"

	"github.com/kbukum/pmidfetch/validation"
)

// CompletionMode selects how the Accumulator decides the run is over.
type CompletionMode string

const (
	// CompletionQuiescence completes after QuiescenceTicks consecutive
	// ticks without new results.
	CompletionQuiescence CompletionMode = "quiescence"
	// CompletionEOS completes when the end-of-stream mark reaches the
	// Accumulator and its queue is empty.
	CompletionEOS CompletionMode = "eos"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageExtractor   Stage = "extractor"
	StageDispatcher  Stage = "dispatcher"
	StageParser      Stage = "parser"
	StageAccumulator Stage = "accumulator"
)

// DefaultRate is the lookup ceiling used when no rate is configured.
const DefaultRate = 44

const (
	defaultTick            = time.Second
	defaultQuiescenceTicks = 5
	defaultLinkCapacity    = 16
)

// Config holds the pipeline settings.
type Config struct {
	// Rate is the ceiling on remote lookups per second. It is never
	// defaulted: a zero rate fails validation.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gt=0"`
	// Tick is the hand-off period shared by every stage.
	Tick time.Duration `yaml:"tick" mapstructure:"tick" validate:"gt=0"`
	// QuiescenceTicks is the number of consecutive idle Accumulator ticks
	// that complete the run in quiescence mode.
	QuiescenceTicks int `yaml:"quiescence_ticks" mapstructure:"quiescence_ticks" validate:"gte=1"`
	// Completion is "quiescence" or "eos".
	Completion CompletionMode `yaml:"completion" mapstructure:"completion" validate:"oneof=quiescence eos"`
	// LinkCapacity is the number of batches buffered between two stages.
	LinkCapacity int `yaml:"link_capacity" mapstructure:"link_capacity" validate:"gte=0"`
	// LookupTimeout bounds each remote lookup. Zero leaves it to the Lookup.
	LookupTimeout time.Duration `yaml:"lookup_timeout" mapstructure:"lookup_timeout" validate:"gte=0"`
}

// DefaultConfig returns a Config with every setting at its default.
// Loaders decode on top of it so that only keys that are absent keep
// DefaultRate.
func DefaultConfig() Config {
	c := Config{Rate: DefaultRate}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values other than Rate.
func (c *Config) ApplyDefaults() {
	if c.Tick == 0 {
		c.Tick = defaultTick
	}
	if c.QuiescenceTicks == 0 {
		c.QuiescenceTicks = defaultQuiescenceTicks
	}
	if c.Completion == "" {
		c.Completion = CompletionQuiescence
	}
	if c.LinkCapacity == 0 {
		c.LinkCapacity = defaultLinkCapacity
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// QuiescenceWindow is the idle time that completes a run in quiescence mode.
func (c *Config) QuiescenceWindow() time.Duration {
	return time.Duration(c.QuiescenceTicks) * c.Tick
}

// String summarises the settings for logs.
func (c *Config) String() string {
	return fmt.Sprintf("rate=%g/s tick=%s quiescence=%d completion=%s", c.Rate, c.Tick, c.QuiescenceTicks, c.Completion)
}
