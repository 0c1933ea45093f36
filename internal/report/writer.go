package report

import (
	"io"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/scoperival/internal/model"
)

// Writer renders reports to an output.
type Writer interface {
	// WriteFeed renders a list of joined changes.
	WriteFeed(entries []model.FeedEntry) (int, error)

	// WriteOverview renders the dashboard.
	WriteOverview(overview model.Overview) (int, error)
}

// MultiWriter writes to several Writers in turn and stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteFeed implements Writer.
func (m *MultiWriter) WriteFeed(entries []model.FeedEntry) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteFeed(entries)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteOverview implements Writer.
func (m *MultiWriter) WriteOverview(overview model.Overview) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteOverview(overview)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// timeLayout is used for every timestamp in text and Markdown output.
const timeLayout = "2006-01-02 15:04 MST"

var titleCaser = cases.Title(language.English)

// PageTypeLabel turns a backend page type such as "changelog" into a label
// ("Changelog"). An empty type becomes "Page".
func PageTypeLabel(pageType string) string {
	if pageType == "" {
		return "Page"
	}
	return titleCaser.String(pageType)
}

// SignificanceLabel renders a score as "HIGH (4/5)".
func SignificanceLabel(s model.Significance) string {
	c := s.Clamp()
	return c.String() + " (" + strconv.Itoa(int(c)) + "/5)"
}

// competitorLabel is "Stripe (stripe.com)", or the name alone when the
// domain is unknown.
func competitorLabel(e model.FeedEntry) string {
	if e.CompetitorDomain == "" {
		return e.CompetitorName
	}
	return e.CompetitorName + " (" + e.CompetitorDomain + ")"
}

// truncateString truncates a string to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
