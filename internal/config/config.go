// Package config handles spinegen configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/spinegen/pkg/formats"
)

// Config holds all generator settings.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Output    OutputConfig    `yaml:"output"`
	Animation AnimationConfig `yaml:"animation"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ModelConfig locates the shape model tables.
type ModelConfig struct {
	Dir string `yaml:"dir"` // Directory holding the .csv tables
}

// OutputConfig holds mesh output settings.
type OutputConfig struct {
	Dir    string `yaml:"dir"`    // Default directory for generated meshes
	Format string `yaml:"format"` // "binary" or "ascii" STL
}

// AnimationConfig holds animation sequence settings.
type AnimationConfig struct {
	SamplesPerLeg int `yaml:"samples_per_leg"` // Frames from min to max (and back)
	Workers       int `yaml:"workers"`         // Concurrent frame writers
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Dir: "SSM",
		},
		Output: OutputConfig{
			Dir:    ".",
			Format: "binary",
		},
		Animation: AnimationConfig{
			SamplesPerLeg: 20,
			Workers:       1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// STLFormat returns the parsed output format.
func (c *Config) STLFormat() (formats.STLFormat, error) {
	return formats.ParseSTLFormat(c.Output.Format)
}

// Validate checks settings that would otherwise fail midway through a batch.
func (c *Config) Validate() error {
	if c.Model.Dir == "" {
		return fmt.Errorf("model directory is not set")
	}
	if _, err := c.STLFormat(); err != nil {
		return err
	}
	if c.Animation.SamplesPerLeg < 2 {
		return fmt.Errorf("samples per leg must be at least 2, got %d", c.Animation.SamplesPerLeg)
	}
	if c.Animation.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Animation.Workers)
	}
	return nil
}
