// Package config loads the serve configuration.
//
// A YAML file is decoded strictly, unified with the embedded CUE schema
// (which supplies defaults and range checks), and finally overridden from
// the environment. A .env file, when present, seeds the environment.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/liftoff/internal/flights"
)

//go:embed schema.cue
var schemaSource string

// Environment variables that override the file.
const (
	EnvListenAddr  = "LIFTOFF_LISTEN_ADDR"
	EnvCompetition = "LIFTOFF_COMPETITION"
)

// Config is the validated serve configuration.
type Config struct {
	ListenAddr           string   `json:"listen_addr" yaml:"listen_addr"`
	CompetitionID        string   `json:"competition_id" yaml:"competition_id"`
	AttemptClockSeconds  int      `json:"attempt_clock_seconds" yaml:"attempt_clock_seconds"`
	ProtestWindowSeconds int      `json:"protest_window_seconds" yaml:"protest_window_seconds"`
	ProtestMinReason     int      `json:"protest_min_reason" yaml:"protest_min_reason"`
	MaxFlightSize        int      `json:"max_flight_size" yaml:"max_flight_size"`
	MinFlightSize        int      `json:"min_flight_size" yaml:"min_flight_size"`
	Satellites           []string `json:"satellites" yaml:"satellites"`
	SatelliteBuffer      int      `json:"satellite_buffer" yaml:"satellite_buffer"`
	HistorySize          int      `json:"history_size" yaml:"history_size"`
}

// AttemptClock returns the per-attempt countdown.
func (c Config) AttemptClock() time.Duration {
	return time.Duration(c.AttemptClockSeconds) * time.Second
}

// ProtestWindow returns how long a judged attempt stays protestable.
func (c Config) ProtestWindow() time.Duration {
	return time.Duration(c.ProtestWindowSeconds) * time.Second
}

// FlightOptions returns the balancer bounds.
func (c Config) FlightOptions() flights.Options {
	return flights.Options{MaxSize: c.MaxFlightSize, MinSize: c.MinFlightSize}
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, err := Parse(nil)
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	return cfg
}

// Load reads a config file. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML config data.
func Parse(data []byte) (Config, error) {
	// Strict pass: unknown keys and type mismatches, with line numbers.
	var strict Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&strict); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	// Only keys present in the file reach CUE, so absent ones default.
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Satellites == nil {
		cfg.Satellites = []string{}
	}
	return cfg, nil
}

// LoadEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvListenAddr); ok && v != "" {
		c.ListenAddr = v
	}
	if v, ok := lookup(EnvCompetition); ok && v != "" {
		c.CompetitionID = v
	}
}
