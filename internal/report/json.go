package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/scoperival/internal/model"
)

// JSONWriter outputs reports as JSON documents.
type JSONWriter struct {
	baseWriter

	version string
	indent  string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents output by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) { w.indent = "  " }
}

// WithVersion records the client version in every document.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) { w.version = version }
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// FeedDocument is the JSON form of a change feed.
type FeedDocument struct {
	Version string            `json:"version,omitempty"`
	Count   int               `json:"count"`
	Changes []model.FeedEntry `json:"changes"`
}

// OverviewDocument is the JSON form of a dashboard overview.
type OverviewDocument struct {
	Version string `json:"version,omitempty"`
	model.Overview

	// SignificanceCounts maps labels such as "HIGH" to the number of changes.
	SignificanceCounts map[string]int `json:"significance_counts"`
}

// WriteFeed implements Writer.
func (w *JSONWriter) WriteFeed(entries []model.FeedEntry) (int, error) {
	if entries == nil {
		entries = []model.FeedEntry{}
	}
	return w.writeJSON(FeedDocument{Version: w.version, Count: len(entries), Changes: entries})
}

// WriteOverview implements Writer.
func (w *JSONWriter) WriteOverview(overview model.Overview) (int, error) {
	if overview.GeneratedAt.IsZero() {
		overview.GeneratedAt = time.Now()
	}
	if overview.Competitors == nil {
		overview.Competitors = []model.Competitor{}
	}
	if overview.Changes == nil {
		overview.Changes = []model.FeedEntry{}
	}

	counts := make(map[string]int)
	for sig, n := range model.CountBySignificance(overview.Changes) {
		counts[sig.String()] = n
	}
	return w.writeJSON(OverviewDocument{Version: w.version, Overview: overview, SignificanceCounts: counts})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent != "" {
		data, err = json.MarshalIndent(v, "", w.indent)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
