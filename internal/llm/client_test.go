package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/TKasperczyk/decant/internal/compact"
	decanterrors "github.com/TKasperczyk/decant/internal/errors"
)

const okMessage = `{"id":"msg_01","type":"message","role":"assistant","model":"claude-haiku-4-5-20251001","content":[{"type":"text","text":"3f2b8c1e"},{"type":"text","text":"-tail"}],"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":3}}`

type capture struct {
	calls   atomic.Int32
	body    atomic.Value
	headers atomic.Value
}

func newServer(t *testing.T, status int, response string, c *capture) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		c.body.Store(string(body))
		c.headers.Store(r.Header.Clone())
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGenerateWithAPIKey(t *testing.T) {
	var c capture
	server := newServer(t, http.StatusOK, okMessage, &c)

	client, err := New(Options{APIKey: "sk-test", BaseURL: server.URL + "/", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := client.Generate(context.Background(), compact.Request{
		System:    "be brief",
		Prompt:    "find it",
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "3f2b8c1e-tail" {
		t.Fatalf("expected concatenated text, got %q", got)
	}

	body := c.body.Load().(string)
	if gjson.Get(body, "model").String() != "claude-haiku-4-5-20251001" {
		t.Fatalf("unexpected model in %s", body)
	}
	if gjson.Get(body, "max_tokens").Int() != 256 {
		t.Fatalf("unexpected max_tokens in %s", body)
	}
	if gjson.Get(body, "system.0.text").String() != "be brief" {
		t.Fatalf("expected system prompt without prefix, got %s", body)
	}
	if gjson.Get(body, "messages.0.content.0.text").String() != "find it" {
		t.Fatalf("unexpected user message in %s", body)
	}
	headers := c.headers.Load().(http.Header)
	if headers.Get("X-Api-Key") != "sk-test" {
		t.Fatalf("expected api key header")
	}
}

func TestGenerateWithAuthTokenAddsPrefix(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	var c capture
	server := newServer(t, http.StatusOK, okMessage, &c)

	client, err := New(Options{AuthToken: "oauth-token", BaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := client.Generate(context.Background(), compact.Request{System: "rules", Prompt: "p", Model: "m", MaxTokens: 1}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	body := c.body.Load().(string)
	if got := gjson.Get(body, "system.0.text").String(); got != OAuthSystemPrefix+"\n\nrules" {
		t.Fatalf("expected prefixed system prompt, got %q", got)
	}
	headers := c.headers.Load().(http.Header)
	if headers.Get("Authorization") != "Bearer oauth-token" {
		t.Fatalf("expected bearer token, got %q", headers.Get("Authorization"))
	}
	if !strings.Contains(headers.Get("Anthropic-Beta"), "oauth-2025-04-20") {
		t.Fatalf("expected oauth beta header, got %q", headers.Get("Anthropic-Beta"))
	}
}

func TestGenerateServerErrorIsNotRetried(t *testing.T) {
	var c capture
	server := newServer(t, http.StatusInternalServerError,
		`{"type":"error","error":{"type":"api_error","message":"boom"}}`, &c)

	client, err := New(Options{APIKey: "sk-test", BaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = client.Generate(context.Background(), compact.Request{System: "s", Prompt: "p", Model: "m", MaxTokens: 1})
	if !decanterrors.Is(err, decanterrors.CategoryRemoteServiceFailure) {
		t.Fatalf("expected remote_service_failure, got %v", err)
	}
	if decanterrors.HintOf(err) == "" {
		t.Fatalf("expected a hint for a server error")
	}
	if calls := c.calls.Load(); calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
}

func TestGenerateEmptyReply(t *testing.T) {
	var c capture
	server := newServer(t, http.StatusOK,
		`{"id":"msg_02","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"max_tokens","stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":0}}`, &c)

	client, err := New(Options{APIKey: "sk-test", BaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = client.Generate(context.Background(), compact.Request{System: "s", Prompt: "p", Model: "m", MaxTokens: 1})
	if !decanterrors.Is(err, decanterrors.CategoryInvalidResponse) {
		t.Fatalf("expected invalid_response, got %v", err)
	}
}

func TestNewWithoutCredentials(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_AUTH_TOKEN", "")
	if _, err := New(Options{}); !decanterrors.Is(err, decanterrors.CategoryInvalidArgument) {
		t.Fatalf("expected invalid_argument, got %v", err)
	}
}
