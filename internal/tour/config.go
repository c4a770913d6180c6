// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tour

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config parameterizes the stress scenario.
type Config struct {
	// Goroutines is the number of workers cloning, releasing and upgrading.
	Goroutines int `yaml:"goroutines"`
	// Iterations is the number of clone/upgrade/release rounds per worker.
	Iterations int `yaml:"iterations"`
	// Keep is the number of clones each worker leaves outstanding until
	// the counts have been checked.
	Keep int `yaml:"keep"`
	// Handoff is the number of clones moved through an rc.Handoff queue
	// from a producer to a consumer goroutine.
	Handoff int `yaml:"handoff"`
	// QueueCapacity bounds the handoff queue; a power of two.
	QueueCapacity int `yaml:"queue_capacity"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Goroutines:    8,
		Iterations:    10000,
		Keep:          2,
		Handoff:       1000,
		QueueCapacity: 64,
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the stress scenario cannot run.
func (c *Config) Validate() error {
	switch {
	case c.Goroutines < 1:
		return fmt.Errorf("goroutines must be positive, got %d", c.Goroutines)
	case c.Iterations < 0:
		return fmt.Errorf("iterations must not be negative, got %d", c.Iterations)
	case c.Keep < 0:
		return fmt.Errorf("keep must not be negative, got %d", c.Keep)
	case c.Handoff < 0:
		return fmt.Errorf("handoff must not be negative, got %d", c.Handoff)
	case c.Handoff > 0 && (c.QueueCapacity < 1 || c.QueueCapacity&(c.QueueCapacity-1) != 0):
		return fmt.Errorf("queue_capacity must be a power of two, got %d", c.QueueCapacity)
	}
	return nil
}
