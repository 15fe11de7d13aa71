package config

import "flag"

// Flags holds command-line overrides. Zero values leave the config untouched.
type Flags struct {
	Config    string
	Debug     bool
	ModelDir  string
	OutputDir string
	Format    string
	Samples   int
	Workers   int
	LogFile   string
}

// RegisterFlags defines the common flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.ModelDir, "model", "", "Shape model directory")
	fs.StringVar(&f.OutputDir, "out", "", "Output directory")
	fs.StringVar(&f.Format, "format", "", "STL format: binary or ascii")
	fs.IntVar(&f.Samples, "n", 0, "Animation samples per leg")
	fs.IntVar(&f.Workers, "workers", 0, "Concurrent animation frame writers")
	fs.StringVar(&f.LogFile, "log", "", "Log file path")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.ModelDir != "" {
		cfg.Model.Dir = f.ModelDir
	}
	if f.OutputDir != "" {
		cfg.Output.Dir = f.OutputDir
	}
	if f.Format != "" {
		cfg.Output.Format = f.Format
	}
	if f.Samples > 0 {
		cfg.Animation.SamplesPerLeg = f.Samples
	}
	if f.Workers > 0 {
		cfg.Animation.Workers = f.Workers
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}
