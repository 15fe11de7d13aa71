package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/spinegen/pkg/formats"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Model.Dir != "SSM" {
		t.Errorf("expected model dir 'SSM', got %s", cfg.Model.Dir)
	}
	if cfg.Output.Dir != "." {
		t.Errorf("expected output dir '.', got %s", cfg.Output.Dir)
	}
	if cfg.Output.Format != "binary" {
		t.Errorf("expected binary format, got %s", cfg.Output.Format)
	}
	if cfg.Animation.SamplesPerLeg != 20 {
		t.Errorf("expected 20 samples per leg, got %d", cfg.Animation.SamplesPerLeg)
	}
	if cfg.Animation.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", cfg.Animation.Workers)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "spinegen.yaml")

	yamlContent := `
model:
  dir: /data/lumbar/SSM

output:
  dir: /data/lumbar/out
  format: ascii

animation:
  samples_per_leg: 30
  workers: 4

logging:
  level: "debug"
  log_file: "spinegen.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Model.Dir != "/data/lumbar/SSM" {
		t.Errorf("expected model dir /data/lumbar/SSM, got %s", cfg.Model.Dir)
	}
	if cfg.Output.Dir != "/data/lumbar/out" {
		t.Errorf("expected output dir /data/lumbar/out, got %s", cfg.Output.Dir)
	}
	format, err := cfg.STLFormat()
	if err != nil || format != formats.STLASCII {
		t.Errorf("expected ascii format, got %v (%v)", format, err)
	}
	if cfg.Animation.SamplesPerLeg != 30 {
		t.Errorf("expected 30 samples, got %d", cfg.Animation.SamplesPerLeg)
	}
	if cfg.Animation.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Animation.Workers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "spinegen.log" {
		t.Errorf("expected log file 'spinegen.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
animation:
  samples_per_leg: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/spinegen.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "spinegen.yaml")
	if err := os.WriteFile(configPath, []byte("model:\n  dir: here\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find spinegen.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "directories",
			args: []string{"-model", "/ssm", "-out", "/anim"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Model.Dir != "/ssm" {
					t.Errorf("expected model dir /ssm, got %s", cfg.Model.Dir)
				}
				if cfg.Output.Dir != "/anim" {
					t.Errorf("expected output dir /anim, got %s", cfg.Output.Dir)
				}
			},
		},
		{
			name: "animation",
			args: []string{"-n", "5", "-workers", "3"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Animation.SamplesPerLeg != 5 {
					t.Errorf("expected 5 samples, got %d", cfg.Animation.SamplesPerLeg)
				}
				if cfg.Animation.Workers != 3 {
					t.Errorf("expected 3 workers, got %d", cfg.Animation.Workers)
				}
			},
		},
		{
			name: "format and log file",
			args: []string{"-format", "ascii", "-log", "run.log"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Output.Format != "ascii" {
					t.Errorf("expected ascii format, got %s", cfg.Output.Format)
				}
				if cfg.Logging.LogFile != "run.log" {
					t.Errorf("expected log file run.log, got %s", cfg.Logging.LogFile)
				}
			},
		},
		{
			name: "no flags keeps defaults",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Animation.SamplesPerLeg != 20 {
					t.Errorf("expected default samples, got %d", cfg.Animation.SamplesPerLeg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			flags := RegisterFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse flags: %v", err)
			}

			cfg := Default()
			flags.apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "spinegen.yaml")

	yamlContent := `
animation:
  samples_per_leg: 12
  workers: 2
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath, "-n", "8"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Samples should be from flag (8), not file (12)
	if cfg.Animation.SamplesPerLeg != 8 {
		t.Errorf("expected 8 samples from flag, got %d", cfg.Animation.SamplesPerLeg)
	}
	// Workers from file since no flag override
	if cfg.Animation.Workers != 2 {
		t.Errorf("expected 2 workers from file, got %d", cfg.Animation.Workers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad format", func(c *Config) { c.Output.Format = "obj" }},
		{"one sample", func(c *Config) { c.Animation.SamplesPerLeg = 1 }},
		{"zero workers", func(c *Config) { c.Animation.Workers = 0 }},
		{"empty model dir", func(c *Config) { c.Model.Dir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "spinegen.yaml")
	if err := os.WriteFile(configPath, []byte("animation:\n  samples_per_leg: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := Load(&Flags{Config: configPath}); err == nil {
		t.Error("expected error for one sample per leg, got nil")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "spinegen.yaml")

	cfg := Default()
	cfg.Model.Dir = "/srv/ssm"
	cfg.Animation.Workers = 6
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Model.Dir != "/srv/ssm" || loaded.Animation.Workers != 6 {
		t.Errorf("reloaded config = %+v", loaded)
	}
}
