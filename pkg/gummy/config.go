package gummy

import (
	"fmt"
	"time"
)

// AudioFormat tags the encoding of the audio frames sent to the service.
type AudioFormat string

const (
	FormatPCM  AudioFormat = "pcm"
	FormatOpus AudioFormat = "opus"
	FormatOpu  AudioFormat = "opu"
)

// IsValid reports whether f is a format accepted by the service.
func (f AudioFormat) IsValid() bool {
	switch f {
	case FormatPCM, FormatOpus, FormatOpu:
		return true
	}
	return false
}

// supportedSampleRates lists the sample rates accepted by the service.
var supportedSampleRates = []int{8000, 16000}

const (
	defaultSourceLang    = "auto"
	defaultMaxEndSilence = 5 * time.Second
)

// StreamConfig describes one recognition/translation session. It is fixed
// once the start control message has been sent.
type StreamConfig struct {
	// TargetLang is the translation target language (e.g., "en", "ja").
	TargetLang string

	// SourceLang is the spoken language. Empty means "auto" detection.
	SourceLang string

	// SampleRate of the audio in Hz. Must be 8000 or 16000.
	SampleRate int

	// Format tags the audio encoding. The zero value defaults to pcm.
	Format AudioFormat

	// MaxEndSilence is the trailing-silence threshold after which the
	// service considers the utterance finished. Zero defaults to 5s.
	MaxEndSilence time.Duration

	// DisableInverseTextNormalization turns off ITN ("twenty five" → "25").
	// ITN is enabled by default, matching the service default.
	DisableInverseTextNormalization bool
}

// withDefaults returns a copy of cfg with zero values replaced by defaults.
func (c StreamConfig) withDefaults() StreamConfig {
	if c.SourceLang == "" {
		c.SourceLang = defaultSourceLang
	}
	if c.Format == "" {
		c.Format = FormatPCM
	}
	if c.MaxEndSilence == 0 {
		c.MaxEndSilence = defaultMaxEndSilence
	}
	return c
}

// validate checks cfg against the service contract. Called on the defaulted
// config before any network I/O.
func (c StreamConfig) validate() error {
	if c.TargetLang == "" {
		return &ConfigError{Field: "target_lang", Reason: "must not be empty"}
	}
	if !c.Format.IsValid() {
		return &ConfigError{
			Field:  "format",
			Reason: fmt.Sprintf("%q is not supported; valid values: pcm, opus, opu", c.Format),
		}
	}
	for _, r := range supportedSampleRates {
		if c.SampleRate == r {
			return nil
		}
	}
	return &ConfigError{
		Field:  "sample_rate",
		Reason: fmt.Sprintf("%d Hz is not supported; valid values: 8000, 16000", c.SampleRate),
	}
}
