// Package config loads vlab settings: defaults, then a YAML file, then
// VLAB_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/vlab/internal/archive"
	"github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/experiment"
	"github.com/abhisek/vlab/internal/logging"
	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/phase"
)

// Config is the full vlab configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	DB         string           `yaml:"db"`
	Lab        LabConfig        `yaml:"lab"`
	Model      osmosis.Params   `yaml:"model"`
	Thresholds phase.Thresholds `yaml:"thresholds"`
	Challenge  challenge.Rules  `yaml:"challenge"`
	Server     ServerConfig     `yaml:"server"`
	Archive    archive.Config   `yaml:"archive"`
}

// LoggingConfig selects the log level and, optionally, a log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// LabConfig sets the starting experiment and the tick period.
type LabConfig struct {
	Archetype  osmosis.Archetype    `yaml:"archetype"`
	Solution   osmosis.SolutionType `yaml:"solution"`
	TickPeriod time.Duration        `yaml:"tick_period"`
}

// ServerConfig configures `vlab serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// AllowedOrigins lists websocket origins; empty allows same-host only.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Lab: LabConfig{
			Archetype:  osmosis.ArchetypePotato,
			Solution:   osmosis.Hypotonic,
			TickPeriod: time.Second,
		},
		Model:      osmosis.DefaultParams(),
		Thresholds: phase.DefaultThresholds(),
		Challenge:  challenge.DefaultRules(),
		Server:     ServerConfig{Addr: "127.0.0.1:8080"},
		Archive:    archive.Config{Driver: archive.DriverFS},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/vlab/config.yaml, falling back to
// ~/.config.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "vlab", "config.yaml"), nil
}

// Load builds the configuration. path, or else $VLAB_CONFIG, names a file
// that must exist; without either the default path is read if present.
// The result is validated.
func Load(path string) (*Config, error) {
	required := true
	if path == "" {
		path = os.Getenv("VLAB_CONFIG")
	}
	if path == "" {
		required = false
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Archive.S3.AccessKeyID = expandEnvVars(cfg.Archive.S3.AccessKeyID)
	cfg.Archive.S3.SecretAccessKey = expandEnvVars(cfg.Archive.S3.SecretAccessKey)
	return cfg, nil
}

// Validate rejects settings the lab cannot run with.
func (c *Config) Validate() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level %q (valid: info, debug, trace)", c.Logging.Level)
	}
	if !c.Lab.Archetype.Valid() {
		return fmt.Errorf("lab.archetype: unknown archetype %q", c.Lab.Archetype)
	}
	if _, err := osmosis.ParseSolutionType(string(c.Lab.Solution)); err != nil {
		return fmt.Errorf("lab.solution: %w", err)
	}
	if c.Lab.TickPeriod < 10*time.Millisecond {
		return fmt.Errorf("lab.tick_period must be at least 10ms, got %v", c.Lab.TickPeriod)
	}
	if err := validateModel(c.Model); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := validateThresholds(c.Thresholds); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if err := c.Challenge.Validate(); err != nil {
		return fmt.Errorf("challenge: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Archive.Driver {
	case "", archive.DriverFS:
	case archive.DriverS3:
		if c.Archive.S3.Bucket == "" {
			return fmt.Errorf("archive.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("archive.driver: unknown driver %q (valid: fs, s3)", c.Archive.Driver)
	}
	return nil
}

func validateModel(p osmosis.Params) error {
	switch {
	case p.RateConstant <= 0:
		return fmt.Errorf("rate_constant must be positive, got %v", p.RateConstant)
	case p.MaxRate <= 0:
		return fmt.Errorf("max_rate must be positive, got %v", p.MaxRate)
	case p.DilutionCoefficient < 0:
		return fmt.Errorf("dilution_coefficient must not be negative, got %v", p.DilutionCoefficient)
	case p.OutsideShare < 0 || p.OutsideShare > 1:
		return fmt.Errorf("outside_share must be between 0 and 1, got %v", p.OutsideShare)
	case p.ConcentrationMin < 0 || p.ConcentrationMax > 100 || p.ConcentrationMin >= p.ConcentrationMax:
		return fmt.Errorf("concentration bounds must satisfy 0 <= min < max <= 100, got [%v, %v]",
			p.ConcentrationMin, p.ConcentrationMax)
	case p.CellSizeMin >= p.CellSizeMax || p.CellSizeBase < p.CellSizeMin || p.CellSizeBase > p.CellSizeMax:
		return fmt.Errorf("cell size must satisfy min <= base <= max, got %v/%v/%v",
			p.CellSizeMin, p.CellSizeBase, p.CellSizeMax)
	case p.IsotonicBand < 0:
		return fmt.Errorf("isotonic_band must not be negative, got %v", p.IsotonicBand)
	}
	for a, g := range p.Growth {
		if !a.Valid() {
			return fmt.Errorf("growth: unknown archetype %q", a)
		}
		if g <= 0 {
			return fmt.Errorf("growth.%s must be positive, got %v", a, g)
		}
	}
	return nil
}

func validateThresholds(t phase.Thresholds) error {
	for name, p := range map[string]phase.PlantThresholds{"potato": t.Potato, "onion": t.Onion} {
		if !(p.SeverePlasmolysis < p.PlasmolysisOnset && p.PlasmolysisOnset < 0 && p.Turgid > 0) {
			return fmt.Errorf("%s: want severe_plasmolysis < plasmolysis_onset < 0 < turgid, got %v/%v/%v",
				name, p.SeverePlasmolysis, p.PlasmolysisOnset, p.Turgid)
		}
	}
	if !(t.Blood.Crenation < 0 && t.Blood.Hemolysis > 0) {
		return fmt.Errorf("blood: want crenation < 0 < hemolysis, got %v/%v", t.Blood.Crenation, t.Blood.Hemolysis)
	}
	if t.FlowEpsilon < 0 {
		return fmt.Errorf("flow_epsilon must not be negative, got %v", t.FlowEpsilon)
	}
	return nil
}

// ExperimentConfig returns the settings a new experiment session uses.
func (c *Config) ExperimentConfig() experiment.Config {
	return experiment.Config{
		Params:     c.Model,
		Thresholds: c.Thresholds,
		Archetype:  c.Lab.Archetype,
		Solution:   c.Lab.Solution,
	}
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("VLAB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VLAB_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("VLAB_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("VLAB_TICK_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Lab.TickPeriod = d
		}
	}
	if v := os.Getenv("VLAB_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("VLAB_ARCHIVE_DRIVER"); v != "" {
		c.Archive.Driver = archive.Driver(v)
	}
	if v := os.Getenv("VLAB_ARCHIVE_DIR"); v != "" {
		c.Archive.Dir = v
	}
	if v := os.Getenv("VLAB_ARCHIVE_S3_BUCKET"); v != "" {
		c.Archive.S3.Bucket = v
	}
	if v := os.Getenv("VLAB_ARCHIVE_S3_REGION"); v != "" {
		c.Archive.S3.Region = v
	}
	if v := os.Getenv("VLAB_ARCHIVE_S3_ENDPOINT"); v != "" {
		c.Archive.S3.Endpoint = v
	}
	if v := os.Getenv("VLAB_ARCHIVE_S3_PREFIX"); v != "" {
		c.Archive.S3.Prefix = v
	}
	if v := os.Getenv("VLAB_ARCHIVE_S3_PATH_STYLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Archive.S3.PathStyle = b
		}
	}
}

// expandEnvVars expands ${VAR} references so secrets can stay out of the
// file.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
