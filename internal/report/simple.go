package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/scoperival/internal/model"
)

// ruleWidth is the width of section separators.
const ruleWidth = 70

// SimpleWriter outputs plain-text reports for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose adds implications and suggested actions to each change.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose includes the full analysis of every change.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) { w.verbose = verbose }
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteFeed implements Writer.
func (w *SimpleWriter) WriteFeed(entries []model.FeedEntry) (int, error) {
	var sb strings.Builder
	w.writeChanges(&sb, entries)
	return io.WriteString(w.output, sb.String())
}

// WriteOverview implements Writer.
func (w *SimpleWriter) WriteOverview(overview model.Overview) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                      SCOPERIVAL DASHBOARD\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	if !overview.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "Generated:          %s\n", overview.GeneratedAt.Format(timeLayout))
	}
	fmt.Fprintf(&sb, "Competitors:        %d\n", overview.Stats.TotalCompetitors)
	fmt.Fprintf(&sb, "Tracked pages:      %d\n", overview.Stats.TotalTrackedPages)
	fmt.Fprintf(&sb, "Changes (7 days):   %d\n", overview.Stats.RecentChanges)
	fmt.Fprintf(&sb, "High significance:  %d\n", overview.Stats.HighSignificanceChanges)
	sb.WriteString("\n")

	writeSection(&sb, "COMPETITORS")
	if len(overview.Competitors) == 0 {
		sb.WriteString("  No competitors tracked yet. Add one with `scoperival add <domain>`.\n\n")
	}
	for _, c := range overview.Competitors {
		fmt.Fprintf(&sb, "  %s (%s)\n", c.CompanyName, c.Domain)
		fmt.Fprintf(&sb, "      %d page(s)", c.PageCount())
		if last := c.LastScraped(); !last.IsZero() {
			fmt.Fprintf(&sb, ", last scanned %s", last.Format(timeLayout))
		}
		sb.WriteString("\n")
	}
	if len(overview.Competitors) > 0 {
		sb.WriteString("\n")
	}

	writeSection(&sb, "RECENT CHANGES")
	w.writeChanges(&sb, overview.Changes)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeChanges(sb *strings.Builder, entries []model.FeedEntry) {
	if len(entries) == 0 {
		sb.WriteString("  No changes detected yet.\n")
		return
	}

	for _, e := range entries {
		fmt.Fprintf(sb, "[%s] %s", SignificanceLabel(e.SignificanceScore), competitorLabel(e))
		if !e.CreatedAt.IsZero() {
			fmt.Fprintf(sb, "  %s", e.CreatedAt.Format(timeLayout))
		}
		sb.WriteString("\n")
		fmt.Fprintf(sb, "  %s\n", e.ChangeSummary)

		if w.verbose {
			if e.StrategicImplications != "" {
				fmt.Fprintf(sb, "  Implications: %s\n", e.StrategicImplications)
			}
			if len(e.SuggestedActions) > 0 {
				sb.WriteString("  Suggested actions:\n")
				for _, a := range e.SuggestedActions {
					fmt.Fprintf(sb, "    - %s\n", a)
				}
			}
		}
		sb.WriteString("\n")
	}
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}
