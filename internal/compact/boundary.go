package compact

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	decanterrors "github.com/TKasperczyk/decant/internal/errors"
	"github.com/TKasperczyk/decant/internal/transcript"
)

var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// FindBoundaryByCount keeps the last n user turns and returns the uuid of the
// first of them.
func FindBoundaryByCount(exchanges []transcript.Exchange, n int) (string, error) {
	if n <= 0 {
		return "", decanterrors.New(decanterrors.CategoryInvalidArgument,
			"pass a positive number of user turns to keep", "--last must be a positive integer, got %d", n)
	}
	users := transcript.UserExchanges(exchanges)
	if n >= len(users) {
		return "", decanterrors.New(decanterrors.CategoryInsufficientHistory,
			"keep fewer turns or pick a topic instead",
			"requested to keep the last %d user turns, but only %d exist; nothing to compact", n, len(users))
	}
	return users[len(users)-n].UUID, nil
}

// FormatExchanges labels every exchange with its uuid and role. Longer
// results keep maxRunes/2 runes from each end.
func FormatExchanges(exchanges []transcript.Exchange, maxRunes int) string {
	lines := make([]string, 0, len(exchanges))
	for _, ex := range exchanges {
		lines = append(lines, fmt.Sprintf("[MSG uuid=%s] %s: %s", ex.UUID, strings.ToUpper(ex.Role), ex.Text))
	}
	return transcript.TruncateMiddle(strings.Join(lines, "\n\n"), maxRunes, exchangeTruncationMarker)
}

// FindBoundaryByTopic asks the service for the first exchange about topic.
func (c *Compactor) FindBoundaryByTopic(ctx context.Context, exchanges []transcript.Exchange, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", decanterrors.New(decanterrors.CategoryInvalidArgument, "", "topic must not be empty")
	}
	if len(exchanges) == 0 {
		return "", decanterrors.New(decanterrors.CategoryInsufficientHistory, "",
			"session has no conversational exchanges")
	}

	c.logger.Debug("resolving topic boundary", "topic", topic, "exchanges", len(exchanges))
	reply, err := c.generate(ctx, Request{
		System:    topicSystemPrompt,
		Prompt:    topicUserPrompt(topic, FormatExchanges(exchanges, c.config.BoundaryTranscriptChars)),
		Model:     c.config.Model,
		MaxTokens: c.config.TopicMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("find topic boundary: %w", err)
	}

	boundary, err := ParseTopicReply(reply, exchanges)
	if err != nil {
		if decanterrors.Is(err, decanterrors.CategoryTopicNotFound) {
			return "", decanterrors.New(decanterrors.CategoryTopicNotFound,
				"try a different topic or use --last N", "topic %q not found in the conversation", topic)
		}
		return "", err
	}
	c.logger.Debug("topic boundary resolved", "boundary", boundary)
	return boundary, nil
}

// ParseTopicReply validates a service reply against the exchange uuids. An
// exact match wins; otherwise whitespace-separated tokens and then any
// UUID-shaped substring are tried.
func ParseTopicReply(reply string, exchanges []transcript.Exchange) (string, error) {
	reply = strings.TrimSpace(reply)
	if strings.Trim(reply, "'\"`.") == TopicNotFoundToken {
		return "", decanterrors.New(decanterrors.CategoryTopicNotFound, "", "service reported the topic as not found")
	}

	valid := make(map[string]struct{}, len(exchanges))
	for _, ex := range exchanges {
		valid[ex.UUID] = struct{}{}
	}
	if _, ok := valid[reply]; ok {
		return reply, nil
	}
	for _, token := range strings.Fields(reply) {
		clean := strings.Trim(token, "'\"`,.")
		if _, ok := valid[clean]; ok {
			return clean, nil
		}
	}
	// UUID-shaped matches compare in canonical form; the exchange's own
	// spelling is returned.
	canonical := make(map[string]string, len(exchanges))
	for _, ex := range exchanges {
		if parsed, err := uuid.Parse(ex.UUID); err == nil {
			canonical[parsed.String()] = ex.UUID
		}
	}
	for _, candidate := range uuidPattern.FindAllString(reply, -1) {
		parsed, err := uuid.Parse(candidate)
		if err != nil {
			continue
		}
		if id, ok := canonical[parsed.String()]; ok {
			return id, nil
		}
	}

	return "", decanterrors.New(decanterrors.CategoryInvalidResponse,
		"try rephrasing the topic or use --last N instead", "service returned an unknown message id: %q", clip(reply, 120))
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
