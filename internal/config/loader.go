package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// validSampleRates lists the sample rates accepted by the inference service.
var validSampleRates = []int{8000, 16000}

// validFormats lists the audio encoding tags accepted by the service.
var validFormats = []string{"pcm", "opus", "opu"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Client.APIKey == "" && cfg.Client.APIKeyEnv == "" {
		errs = append(errs, errors.New("client.api_key or client.api_key_env is required"))
	}
	if cfg.Client.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("client.chunk_size %d must not be negative", cfg.Client.ChunkSize))
	}

	if cfg.Session.TargetLang == "" {
		errs = append(errs, errors.New("session.target_lang is required"))
	}
	if cfg.Session.SampleRate != 0 && !slices.Contains(validSampleRates, cfg.Session.SampleRate) {
		errs = append(errs, fmt.Errorf("session.sample_rate %d is invalid; valid values: 8000, 16000", cfg.Session.SampleRate))
	}
	if cfg.Session.Format != "" && !slices.Contains(validFormats, cfg.Session.Format) {
		errs = append(errs, fmt.Errorf("session.format %q is invalid; valid values: pcm, opus, opu", cfg.Session.Format))
	}
	if cfg.Session.MaxEndSilenceMs < 0 {
		errs = append(errs, fmt.Errorf("session.max_end_silence_ms %d must not be negative", cfg.Session.MaxEndSilenceMs))
	}

	return errors.Join(errs...)
}

// ResolveAPIKey returns the bearer token from the config, falling back to
// the environment variable named by api_key_env.
func (c *ClientConfig) ResolveAPIKey() (string, error) {
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	if c.APIKeyEnv == "" {
		return "", errors.New("config: no api_key or api_key_env configured")
	}
	key := os.Getenv(c.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("config: environment variable %s is empty", c.APIKeyEnv)
	}
	return key, nil
}
