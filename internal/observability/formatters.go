// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/luxprima/internal/journal"
	"github.com/jonathan/luxprima/internal/pipeline"
	"github.com/jonathan/luxprima/internal/pipeline/steps"
	"github.com/jonathan/luxprima/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// previewLines is how much of a report body PrintReport shows
	previewLines = 12
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to at most n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintProgress writes one progress event as a single line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(ev pipeline.ProgressEvent) {
	if ev.Message == "" {
		return
	}
	fmt.Fprintf(p.out, "  [%s] %s\n", ev.Step, ev.Message)
}

// PrintSources outputs the seed sources a run starts from.
func (p *Printer) PrintSources(sources []types.Source) {
	if len(sources) == 0 {
		p.printBox("ACTIVE SOURCES", "(none)")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d active sources:\n\n", len(sources)))
	count := min(len(sources), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := sources[i]
		if s.Name != "" {
			sb.WriteString(fmt.Sprintf("• %s\n  %s\n", s.Name, s.URL))
		} else {
			sb.WriteString(fmt.Sprintf("• %s\n", s.URL))
		}
	}
	if len(sources) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more", len(sources)-maxItemsToShow))
	}

	p.printBox("ACTIVE SOURCES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStages outputs one line per executed stage with its outcome.
func (p *Printer) PrintStages(results []steps.StageResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for _, r := range results {
		mark := "✓"
		switch r.Outcome {
		case steps.OutcomePartial:
			mark = "~"
		case steps.OutcomeFailed:
			mark = "✗"
		}
		sb.WriteString(fmt.Sprintf("%s %s (%s)\n", mark, r.Summary(), r.Duration.Round(time.Millisecond)))
	}

	p.printBox("STAGES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReport outputs the report header, its journal metadata and the first
// lines of the markdown body.
func (p *Printer) PrintReport(report *types.Report) {
	if report == nil {
		return
	}

	md := journal.ParseMetadata(report.Logs)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:       %d\n", report.ID))
	sb.WriteString(fmt.Sprintf("Title:    %s\n", report.Title))
	sb.WriteString(fmt.Sprintf("Model:    %s\n", md.Model))
	sb.WriteString(fmt.Sprintf("Sources:  %d\n", md.SourceCount))
	sb.WriteString("\n")

	lines := strings.Split(strings.TrimSpace(report.ContentMarkdown), "\n")
	count := min(len(lines), previewLines)
	for i := 0; i < count; i++ {
		sb.WriteString(lines[i] + "\n")
	}
	if len(lines) > previewLines {
		sb.WriteString(fmt.Sprintf("... and %d more lines", len(lines)-previewLines))
	}

	p.printBox("BRIEFING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult outputs the run summary followed by stages and the report.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintResult(res *pipeline.Result, runErr error) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:       %s\n", res.RunID))
	if res.Provider != "" {
		sb.WriteString(fmt.Sprintf("Provider:  %s\n", res.Provider))
	}
	sb.WriteString(fmt.Sprintf("Attempted: %d URLs\n", res.Attempted))
	sb.WriteString(fmt.Sprintf("Duration:  %s\n", res.EndedAt.Sub(res.StartedAt).Round(time.Millisecond)))
	if runErr != nil {
		sb.WriteString(fmt.Sprintf("Error:     %v", runErr))
	} else {
		sb.WriteString("Status:    ✅ complete")
	}
	p.printBox("RUN SUMMARY", sb.String())

	p.PrintStages(res.Stages)
	p.PrintReport(res.Report)
}
