package compact

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	decanterrors "github.com/TKasperczyk/decant/internal/errors"
	"github.com/TKasperczyk/decant/internal/transcript"
)

// Result reports what a compaction did to the session file.
type Result struct {
	OriginalMessages int
	FinalMessages    int
	// RemovedMessages counts original records that were dropped; the added
	// summary record is not counted against it.
	RemovedMessages int
	OriginalBytes   int64
	FinalBytes      int64
	SavedBytes      int64
	BackupPath      string
}

// Rebase reports the result against an earlier file state, such as the size
// before a strip pass and the backup taken before it.
func (r Result) Rebase(originalBytes int64, backupPath string) Result {
	r.OriginalBytes = originalBytes
	r.SavedBytes = originalBytes - r.FinalBytes
	if backupPath != "" {
		r.BackupPath = backupPath
	}
	return r
}

// Compactor resolves boundaries and summaries through a Service and splices
// session files.
type Compactor struct {
	service Service
	config  *Config
	logger  Logger
	newID   func() string
	now     func() time.Time
}

// New creates a Compactor. A nil config uses DefaultConfig; a nil logger
// discards output.
func New(service Service, config *Config, logger Logger) (*Compactor, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		config.ApplyDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("compact config: %w", err)
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Compactor{
		service: service,
		config:  config,
		logger:  logger,
		newID:   uuid.NewString,
		now:     time.Now,
	}, nil
}

func (c *Compactor) generate(ctx context.Context, req Request) (string, error) {
	if c.service == nil {
		return "", decanterrors.New(decanterrors.CategoryRemoteServiceFailure, "", "no summarization service configured")
	}
	out, err := c.service.Generate(ctx, req)
	if err != nil {
		if decanterrors.CategoryOf(err) == "" {
			err = decanterrors.Wrap(err, decanterrors.CategoryRemoteServiceFailure, "")
		}
		return "", err
	}
	return out, nil
}

// SummarizeHead summarizes the main chain before boundary.
func (c *Compactor) SummarizeHead(ctx context.Context, entries []transcript.Entry, boundary string) (string, error) {
	head := transcript.HeadChain(entries, boundary)
	if len(head) == 0 {
		return EmptyHeadSummary, nil
	}
	text := transcript.HeadTranscript(head, c.config.SummaryTranscriptChars)
	c.logger.Debug("summarizing head", "records", len(head), "chars", len(text))

	summary, err := c.generate(ctx, Request{
		System:    summarySystemPrompt,
		Prompt:    summaryUserPrompt(text),
		Model:     c.config.Model,
		MaxTokens: c.config.SummaryMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarize head: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", decanterrors.New(decanterrors.CategoryInvalidResponse, "", "service returned an empty summary")
	}
	return summary, nil
}

// Compact splices entries in memory.
func (c *Compactor) Compact(entries []transcript.Entry, boundary, summaryText string) ([]transcript.Entry, error) {
	summary, err := BuildSummaryRecord(summaryText, transcript.SessionMetadata(entries), c.newID(), c.now())
	if err != nil {
		return nil, fmt.Errorf("build summary record: %w", err)
	}
	out, tail, err := Splice(entries, boundary, summary)
	if err != nil {
		return nil, err
	}
	c.logger.Info("spliced session", "boundary", boundary, "tail", len(tail), "before", len(entries), "after", len(out))
	return out, nil
}

// CompactFile loads path, splices it at boundary and saves it back. When
// backup is set the original file is copied aside first.
func (c *Compactor) CompactFile(path, boundary, summaryText string, backup bool) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, decanterrors.Wrap(fmt.Errorf("stat %s: %w", path, err), decanterrors.CategoryIOFailure, "")
	}
	entries, err := transcript.Load(path)
	if err != nil {
		return Result{}, err
	}

	out, err := c.Compact(entries, boundary, summaryText)
	if err != nil {
		return Result{}, err
	}
	backupPath, err := transcript.Save(path, out, backup)
	if err != nil {
		return Result{}, err
	}

	final, err := os.Stat(path)
	if err != nil {
		return Result{}, decanterrors.Wrap(fmt.Errorf("stat %s: %w", path, err), decanterrors.CategoryIOFailure, "")
	}
	return Result{
		OriginalMessages: len(entries),
		FinalMessages:    len(out),
		RemovedMessages:  len(entries) - len(out) + 1,
		OriginalBytes:    info.Size(),
		FinalBytes:       final.Size(),
		SavedBytes:       info.Size() - final.Size(),
		BackupPath:       backupPath,
	}, nil
}
