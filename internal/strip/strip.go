// Package strip removes transcript noise that carries no conversational
// meaning: progress ticks, thinking blocks, API accounting fields and
// oversized tool output.
//
// Every strategy is a pure function over an entry slice. The input slice and
// its records are never modified, and running a strategy on its own output
// changes nothing.
package strip

import (
	"bytes"
	"fmt"

	"github.com/TKasperczyk/decant/internal/transcript"
)

// Strategy names, in pipeline order.
const (
	ProgressCollapse = "progress-collapse"
	ThinkingStrip    = "thinking-strip"
	MetadataStrip    = "metadata-strip"
	ToolOutputTrim   = "tool-output-trim"
)

// Func transforms entries and reports the bytes it saved.
type Func func(entries []transcript.Entry) ([]transcript.Entry, int, error)

// Strategy is a named Func.
type Strategy struct {
	Name  string
	Apply Func
}

// Pipeline returns the four strategies in the order they must run.
func Pipeline() []Strategy {
	return []Strategy{
		{Name: ProgressCollapse, Apply: CollapseProgress},
		{Name: ThinkingStrip, Apply: StripThinking},
		{Name: MetadataStrip, Apply: StripMetadata},
		{Name: ToolOutputTrim, Apply: TrimToolOutput},
	}
}

// Saving is the contribution of one strategy.
type Saving struct {
	Name       string
	SavedBytes int
}

// Report summarizes a pipeline run.
type Report struct {
	OriginalCount   int
	FinalCount      int
	RemovedMessages int
	OriginalBytes   int
	SavedBytes      int
	Percent         float64
	Breakdown       []Saving
}

// Run applies the full pipeline.
func Run(entries []transcript.Entry) ([]transcript.Entry, Report, error) {
	return Apply(entries, Pipeline()...)
}

// Apply runs strategies in order, feeding each the previous output.
func Apply(entries []transcript.Entry, strategies ...Strategy) ([]transcript.Entry, Report, error) {
	report := Report{
		OriginalCount: len(entries),
		OriginalBytes: transcript.TotalSize(entries),
	}
	current := entries
	for _, s := range strategies {
		next, saved, err := s.Apply(current)
		if err != nil {
			return nil, Report{}, fmt.Errorf("%s: %w", s.Name, err)
		}
		current = next
		report.SavedBytes += saved
		report.Breakdown = append(report.Breakdown, Saving{Name: s.Name, SavedBytes: saved})
	}
	report.FinalCount = len(current)
	report.RemovedMessages = report.OriginalCount - report.FinalCount
	if report.OriginalBytes > 0 {
		report.Percent = float64(report.SavedBytes) / float64(report.OriginalBytes) * 100
	}
	return current, report, nil
}

// CollapseProgress keeps only the last record of every run of consecutive
// progress records. Raw entries end a run.
func CollapseProgress(entries []transcript.Entry) ([]transcript.Entry, int, error) {
	out := make([]transcript.Entry, 0, len(entries))
	saved := 0
	for i, e := range entries {
		if isProgress(e) && i+1 < len(entries) && isProgress(entries[i+1]) {
			saved += e.Size()
			continue
		}
		out = append(out, e)
	}
	return out, saved, nil
}

func isProgress(e transcript.Entry) bool {
	return e.Record != nil && e.Record.Type() == transcript.TypeProgress
}

// mapRecords applies edit to every parsed record. An edited record replaces
// the original only when it is strictly smaller.
func mapRecords(entries []transcript.Entry, edit func(*transcript.Record) (*transcript.Record, error)) ([]transcript.Entry, int, error) {
	out := make([]transcript.Entry, len(entries))
	saved := 0
	for i, e := range entries {
		out[i] = e
		if e.Record == nil {
			continue
		}
		next, err := edit(e.Record)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", e.Line+1, err)
		}
		if next == nil || next == e.Record {
			continue
		}
		if delta := e.Record.Size() - next.Size(); delta > 0 {
			out[i] = e.WithRecord(next)
			saved += delta
		}
	}
	return out, saved, nil
}

// withBlocks returns rec with message.content replaced by the raw blocks.
func withBlocks(rec *transcript.Record, blocks [][]byte) (*transcript.Record, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.Write(bytes.Join(blocks, []byte{','}))
	buf.WriteByte(']')
	return rec.SetRaw("message.content", buf.Bytes())
}
