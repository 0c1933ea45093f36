package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/scoperival/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavoured Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// WriteFeed implements Writer.
func (w *MarkdownWriter) WriteFeed(entries []model.FeedEntry) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Competitor Changes")
	md.PlainText("")
	w.writeSignificanceSummary(md, entries)
	w.writeChanges(md, entries)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteOverview implements Writer.
func (w *MarkdownWriter) WriteOverview(overview model.Overview) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Scoperival Dashboard")
	md.PlainText("")
	if !overview.GeneratedAt.IsZero() {
		md.PlainTextf("Generated %s", overview.GeneratedAt.Format(timeLayout))
		md.PlainText("")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Competitors", strconv.Itoa(overview.Stats.TotalCompetitors)},
			{"Tracked pages", strconv.Itoa(overview.Stats.TotalTrackedPages)},
			{"Changes (last 7 days)", strconv.Itoa(overview.Stats.RecentChanges)},
			{"High significance changes", strconv.Itoa(overview.Stats.HighSignificanceChanges)},
		},
	})
	md.PlainText("")

	w.writeCompetitors(md, overview.Competitors)
	w.writeSignificanceSummary(md, overview.Changes)
	w.writeChanges(md, overview.Changes)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeCompetitors(md *markdown.Markdown, competitors []model.Competitor) {
	md.H2("Competitors")
	md.PlainText("")

	if len(competitors) == 0 {
		md.PlainText("No competitors tracked yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(competitors))
	for _, c := range competitors {
		pages := make([]string, 0, len(c.TrackedPages))
		for _, p := range c.TrackedPages {
			pages = append(pages, PageTypeLabel(p.PageType))
		}
		last := "-"
		if t := c.LastScraped(); !t.IsZero() {
			last = t.Format(timeLayout)
		}
		rows = append(rows, []string{
			c.CompanyName,
			"`" + c.Domain + "`",
			strconv.Itoa(c.PageCount()),
			orDash(strings.Join(pages, ", ")),
			last,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Company", "Domain", "Pages", "Page types", "Last scanned"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSignificanceSummary(md *markdown.Markdown, entries []model.FeedEntry) {
	md.H2("Significance Summary")
	md.PlainText("")

	counts := model.CountBySignificance(entries)
	rows := make([][]string, 0, 6)
	for _, sig := range model.AllSignificances() {
		rows = append(rows, []string{sig.String(), strconv.Itoa(counts[sig])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(entries)) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Significance", "Changes"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(entries) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Changes by Significance"),
			piechart.WithShowData(true),
		)
		for _, sig := range model.AllSignificances() {
			if counts[sig] > 0 {
				chart.LabelAndIntValue(PageTypeLabel(strings.ToLower(sig.String())), uint64(counts[sig]))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case counts[model.SignificanceCritical] > 0:
		md.Cautionf("%d critical change(s) likely require a response.", counts[model.SignificanceCritical])
	case counts[model.SignificanceHigh] > 0:
		md.Warningf("%d high significance change(s) detected.", counts[model.SignificanceHigh])
	case counts[model.SignificanceModerate] > 0:
		md.Importantf("%d moderate change(s) worth reading.", counts[model.SignificanceModerate])
	case len(entries) > 0:
		md.Note("Only minor changes detected.")
	default:
		md.Tip("No changes detected yet. Trigger a scan with `scoperival scan`.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeChanges(md *markdown.Markdown, entries []model.FeedEntry) {
	md.H2("Changes")
	md.PlainText("")

	if len(entries) == 0 {
		md.PlainText("No changes detected yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.CreatedAt.Format("2006-01-02"),
			competitorLabel(e),
			SignificanceLabel(e.SignificanceScore),
			truncateString(e.ChangeSummary, 80),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Date", "Competitor", "Significance", "Summary"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, e := range entries {
		md.H3(competitorLabel(e) + ": " + truncateString(e.ChangeSummary, 60))
		md.PlainText("")
		md.PlainText(e.ChangeSummary)
		md.PlainText("")
		if e.StrategicImplications != "" {
			md.Details("Strategic implications", e.StrategicImplications)
			md.PlainText("")
		}
		if len(e.SuggestedActions) > 0 {
			md.PlainText("**Suggested actions**")
			md.PlainText("")
			md.BulletList(e.SuggestedActions...)
			md.PlainText("")
		}
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [scoperival](https://github.com/nao1215/scoperival)*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
