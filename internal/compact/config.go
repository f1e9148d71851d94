package compact

import (
	decanterrors "github.com/TKasperczyk/decant/internal/errors"
)

// Default configuration values.
const (
	DefaultModel                   = "claude-haiku-4-5-20251001"
	DefaultSummaryMaxTokens        = 4096
	DefaultTopicMaxTokens          = 256
	DefaultBoundaryTranscriptChars = 100000
	DefaultSummaryTranscriptChars  = 200000
)

// Config holds summarization settings.
type Config struct {
	// Model is the model id passed to the service.
	Model string

	// SummaryMaxTokens caps the head summary response.
	SummaryMaxTokens int

	// TopicMaxTokens caps the topic boundary response.
	TopicMaxTokens int

	// BoundaryTranscriptChars is the rune budget of the labeled exchange
	// transcript sent for topic detection.
	BoundaryTranscriptChars int

	// SummaryTranscriptChars is the rune budget of the head transcript sent
	// for summarization.
	SummaryTranscriptChars int
}

func DefaultConfig() *Config {
	return &Config{
		Model:                   DefaultModel,
		SummaryMaxTokens:        DefaultSummaryMaxTokens,
		TopicMaxTokens:          DefaultTopicMaxTokens,
		BoundaryTranscriptChars: DefaultBoundaryTranscriptChars,
		SummaryTranscriptChars:  DefaultSummaryTranscriptChars,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.SummaryMaxTokens == 0 {
		c.SummaryMaxTokens = DefaultSummaryMaxTokens
	}
	if c.TopicMaxTokens == 0 {
		c.TopicMaxTokens = DefaultTopicMaxTokens
	}
	if c.BoundaryTranscriptChars == 0 {
		c.BoundaryTranscriptChars = DefaultBoundaryTranscriptChars
	}
	if c.SummaryTranscriptChars == 0 {
		c.SummaryTranscriptChars = DefaultSummaryTranscriptChars
	}
}

func (c *Config) Validate() error {
	if c.SummaryMaxTokens < 0 || c.TopicMaxTokens < 0 {
		return decanterrors.New(decanterrors.CategoryInvalidArgument, "", "max tokens must not be negative")
	}
	if c.BoundaryTranscriptChars < 0 || c.SummaryTranscriptChars < 0 {
		return decanterrors.New(decanterrors.CategoryInvalidArgument, "", "transcript budgets must not be negative")
	}
	return nil
}
