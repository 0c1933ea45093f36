// Package feed is the read-only projection of detected changes.
//
// Changes are joined against the competitor registry for display only. A
// change whose competitor is not in the registry is kept and labelled
// model.UnknownCompetitor.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/scoperival/internal/model"
)

// Requester is the part of *apiclient.Client the feed needs.
type Requester interface {
	Get(ctx context.Context, path string, out any) error
}

// Directory supplies the competitors to join against.
// *registry.Registry implements it.
type Directory interface {
	Competitors() []model.Competitor
}

// Feed loads and joins changes.
type Feed struct {
	client    Requester
	directory Directory
	logger    *slog.Logger
}

// Option configures a Feed.
type Option func(*Feed)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Feed) { f.logger = logger }
}

// New creates a Feed. directory may be nil, in which case every entry is
// labelled unknown.
func New(client Requester, directory Directory, opts ...Option) *Feed {
	f := &Feed{
		client:    client,
		directory: directory,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the raw changes, newest first as sent by the backend.
func (f *Feed) Fetch(ctx context.Context) ([]model.Change, error) {
	var changes []model.Change
	if err := f.client.Get(ctx, "/changes", &changes); err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	return changes, nil
}

// Load fetches the changes, joins them against the directory's current
// snapshot and applies filter.
func (f *Feed) Load(ctx context.Context, filter Filter) ([]model.FeedEntry, error) {
	changes, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	var competitors []model.Competitor
	if f.directory != nil {
		competitors = f.directory.Competitors()
	}
	entries := filter.Apply(Join(changes, competitors))

	f.logger.Debug("change feed loaded", "changes", len(changes), "shown", len(entries))
	return entries, nil
}

// Join attaches the competitor name and domain to each change, preserving
// order. Unmatched changes get model.UnknownCompetitor.
func Join(changes []model.Change, competitors []model.Competitor) []model.FeedEntry {
	byID := make(map[string]model.Competitor, len(competitors))
	for _, c := range competitors {
		byID[c.ID] = c
	}

	entries := make([]model.FeedEntry, 0, len(changes))
	for _, ch := range changes {
		entry := model.FeedEntry{Change: ch, CompetitorName: model.UnknownCompetitor}
		if c, ok := byID[ch.CompetitorID]; ok {
			entry.CompetitorName = c.CompanyName
			entry.CompetitorDomain = c.Domain
		}
		entries = append(entries, entry)
	}
	return entries
}

// Filter narrows a feed. The zero Filter keeps everything.
type Filter struct {
	// MinSignificance drops changes scored below it. Zero disables it.
	MinSignificance model.Significance

	// CompetitorID keeps only that competitor's changes.
	CompetitorID string

	// Since drops changes created before it.
	Since time.Time

	// Limit caps the number of entries. Zero means no cap.
	Limit int
}

// Apply returns the entries matching f, in their original order.
func (f Filter) Apply(entries []model.FeedEntry) []model.FeedEntry {
	out := make([]model.FeedEntry, 0, len(entries))
	for _, e := range entries {
		if f.MinSignificance > 0 && e.SignificanceScore < f.MinSignificance {
			continue
		}
		if f.CompetitorID != "" && e.CompetitorID != f.CompetitorID {
			continue
		}
		if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}
