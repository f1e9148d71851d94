package compact

import "context"

// Request is one single-turn completion request.
type Request struct {
	System    string
	Prompt    string
	Model     string
	MaxTokens int
}

// Service generates text from a prompt. Implementations make one blocking
// call per request and do not retry.
type Service interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Logger interface for compaction logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}
