// Package dashboard assembles the overview screen: backend statistics, the
// competitor collection and the joined change feed, loaded concurrently.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/scoperival/internal/feed"
	"github.com/nao1215/scoperival/internal/model"
)

// Requester is the part of *apiclient.Client the loader needs.
type Requester interface {
	Get(ctx context.Context, path string, out any) error
}

// Lister refreshes and returns the competitor collection.
// *registry.Registry implements it.
type Lister interface {
	List(ctx context.Context) ([]model.Competitor, error)
}

// ChangeFetcher returns raw changes. *feed.Feed implements it.
type ChangeFetcher interface {
	Fetch(ctx context.Context) ([]model.Change, error)
}

// Loader builds dashboard overviews.
type Loader struct {
	client      Requester
	competitors Lister
	changes     ChangeFetcher
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a Loader.
func New(client Requester, competitors Lister, changes ChangeFetcher, opts ...Option) *Loader {
	l := &Loader{
		client:      client,
		competitors: competitors,
		changes:     changes,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Stats fetches GET /dashboard/stats.
func (l *Loader) Stats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats
	if err := l.client.Get(ctx, "/dashboard/stats", &stats); err != nil {
		return model.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

// Load fetches stats, competitors and changes in parallel. Any failure
// fails the whole load and cancels the other requests.
func (l *Loader) Load(ctx context.Context) (model.Overview, error) {
	var (
		stats       model.DashboardStats
		competitors []model.Competitor
		changes     []model.Change
	)

	start := l.now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		stats, err = l.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		competitors, err = l.competitors.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		changes, err = l.changes.Fetch(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return model.Overview{}, err
	}

	overview := model.Overview{
		GeneratedAt: l.now(),
		Stats:       stats,
		Competitors: competitors,
		Changes:     feed.Join(changes, competitors),
	}
	l.logger.Debug("dashboard loaded",
		"competitors", len(competitors),
		"changes", len(changes),
		"elapsed", l.now().Sub(start).Round(time.Millisecond),
	)
	return overview, nil
}
