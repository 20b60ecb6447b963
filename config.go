package memorykeep

import (
	"fmt"
	"math"
)

// Default configuration values.
const (
	DefaultCapacity       = 8192
	DefaultFlushThreshold = 0.85
	DefaultOverlapCount   = 2
	DefaultRetrievalLimit = 3
)

// Config holds engine configuration. Zero fields take their defaults.
type Config struct {
	// Capacity is the token budget of the stream.
	// Default: 8192
	Capacity int `yaml:"capacity"`

	// FlushThreshold is the fraction of Capacity (0.0-1.0] above which a
	// memory keep runs.
	// Default: 0.85
	FlushThreshold float64 `yaml:"flush_threshold"`

	// OverlapCount is the number of most recent turns carried across a
	// memory keep.
	// Default: 2
	OverlapCount int `yaml:"overlap_count"`

	// RetrievalLimit is the number of ranked candidates considered per search.
	// Default: 3
	RetrievalLimit int `yaml:"retrieval_limit"`
}

// DefaultConfig returns a Config with the default values.
func DefaultConfig() *Config {
	return &Config{
		Capacity:       DefaultCapacity,
		FlushThreshold: DefaultFlushThreshold,
		OverlapCount:   DefaultOverlapCount,
		RetrievalLimit: DefaultRetrievalLimit,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.FlushThreshold == 0 {
		c.FlushThreshold = DefaultFlushThreshold
	}
	if c.OverlapCount == 0 {
		c.OverlapCount = DefaultOverlapCount
	}
	if c.RetrievalLimit == 0 {
		c.RetrievalLimit = DefaultRetrievalLimit
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}

	if math.IsNaN(c.FlushThreshold) || c.FlushThreshold <= 0 || c.FlushThreshold > 1.0 {
		return fmt.Errorf("%w: flush_threshold must be between 0 and 1, got %f", ErrInvalidConfig, c.FlushThreshold)
	}

	if c.OverlapCount < 0 {
		return fmt.Errorf("%w: overlap_count must be non-negative, got %d", ErrInvalidConfig, c.OverlapCount)
	}

	if c.RetrievalLimit <= 0 {
		return fmt.Errorf("%w: retrieval_limit must be positive, got %d", ErrInvalidConfig, c.RetrievalLimit)
	}

	return nil
}

// TriggerThreshold returns the stream token count above which a memory keep runs.
func (c Config) TriggerThreshold() float64 {
	return float64(c.Capacity) * c.FlushThreshold
}

// ThresholdTokens returns TriggerThreshold truncated to an integer, for display.
func (c Config) ThresholdTokens() int {
	return int(c.TriggerThreshold())
}

// ShouldConsolidate reports whether streamTokens is strictly above the trigger.
func (c Config) ShouldConsolidate(streamTokens int) bool {
	return float64(streamTokens) > c.TriggerThreshold()
}
