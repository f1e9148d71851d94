// Package llm implements the summarization service on the Anthropic
// Messages API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/TKasperczyk/decant/internal/compact"
	decanterrors "github.com/TKasperczyk/decant/internal/errors"
)

const (
	// OAuthSystemPrefix must open the system prompt of OAuth-authenticated
	// requests.
	OAuthSystemPrefix = "You are Claude Code, Anthropic's official CLI for Claude."

	oauthBetas = "oauth-2025-04-20,claude-code-20250219,interleaved-thinking-2025-05-14"

	DefaultTimeout = 120 * time.Second
)

// Options configures a Client. Empty credentials fall back to
// ANTHROPIC_API_KEY and then ANTHROPIC_AUTH_TOKEN.
type Options struct {
	APIKey    string
	AuthToken string
	BaseURL   string
	Timeout   time.Duration
}

// Client is a compact.Service backed by the Anthropic API.
type Client struct {
	client       anthropic.Client
	timeout      time.Duration
	systemPrefix string
}

var _ compact.Service = (*Client)(nil)

// New builds a Client. It fails when no credential is available.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" && opts.AuthToken == "" {
		opts.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if opts.APIKey == "" {
			opts.AuthToken = os.Getenv("ANTHROPIC_AUTH_TOKEN")
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	requestOpts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(opts.Timeout),
	}
	c := &Client{timeout: opts.Timeout}
	switch {
	case opts.APIKey != "":
		requestOpts = append(requestOpts, option.WithAPIKey(opts.APIKey))
	case opts.AuthToken != "":
		requestOpts = append(requestOpts,
			option.WithAuthToken(opts.AuthToken),
			option.WithHeader("anthropic-beta", oauthBetas),
		)
		c.systemPrefix = OAuthSystemPrefix
	default:
		return nil, decanterrors.New(decanterrors.CategoryInvalidArgument,
			"set ANTHROPIC_API_KEY or ANTHROPIC_AUTH_TOKEN", "no Anthropic credentials available")
	}
	if opts.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(opts.BaseURL))
	}

	c.client = anthropic.NewClient(requestOpts...)
	return c, nil
}

// Generate sends one message and returns the concatenated text blocks of
// the reply.
func (c *Client) Generate(ctx context.Context, req compact.Request) (string, error) {
	system := req.System
	if c.systemPrefix != "" {
		system = c.systemPrefix + "\n\n" + system
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", decanterrors.Wrap(fmt.Errorf("anthropic messages: %w", err),
			decanterrors.CategoryRemoteServiceFailure, c.hintFor(err))
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return "", decanterrors.New(decanterrors.CategoryInvalidResponse, "",
			"empty response from %s (stop reason %q)", req.Model, message.StopReason)
	}
	return text.String(), nil
}

func (c *Client) hintFor(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("the request timed out after %s; raise --timeout", c.timeout)
	}
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return ""
	}
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		return "check ANTHROPIC_API_KEY or ANTHROPIC_AUTH_TOKEN"
	case apiErr.StatusCode == http.StatusNotFound:
		return "check the model name"
	case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500:
		return "the service is busy; try again later"
	}
	return ""
}
