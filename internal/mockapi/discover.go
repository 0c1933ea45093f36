package mockapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/scoperival/internal/model"
)

// Discoverer suggests pages worth tracking for a domain.
type Discoverer interface {
	Discover(ctx context.Context, domain string) ([]model.PageSuggestion, error)
}

// DiscovererFunc adapts a function to Discoverer.
type DiscovererFunc func(ctx context.Context, domain string) ([]model.PageSuggestion, error)

// Discover implements Discoverer.
func (f DiscovererFunc) Discover(ctx context.Context, domain string) ([]model.PageSuggestion, error) {
	return f(ctx, domain)
}

// CommonPath is a path that competitors usually publish, with the page type
// it is classified as.
type CommonPath struct {
	Path     string
	PageType string
}

// CommonPaths are probed in this order.
var CommonPaths = []CommonPath{
	{Path: "/pricing", PageType: "pricing"},
	{Path: "/plans", PageType: "pricing"},
	{Path: "/features", PageType: "features"},
	{Path: "/product", PageType: "features"},
	{Path: "/blog", PageType: "blog"},
	{Path: "/changelog", PageType: "changelog"},
	{Path: "/updates", PageType: "changelog"},
	{Path: "/news", PageType: "blog"},
}

// baseURL turns a domain into "https://domain" unless it already has a scheme.
func baseURL(domain string) string {
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return strings.TrimRight(domain, "/")
	}
	return "https://" + strings.TrimRight(domain, "/")
}

// StaticDiscoverer suggests every CommonPaths entry without touching the
// network.
type StaticDiscoverer struct{}

// Discover implements Discoverer.
func (StaticDiscoverer) Discover(_ context.Context, domain string) ([]model.PageSuggestion, error) {
	base := baseURL(domain)
	out := make([]model.PageSuggestion, 0, len(CommonPaths))
	for _, p := range CommonPaths {
		out = append(out, model.PageSuggestion{URL: base + p.Path, PageType: p.PageType})
	}
	return out, nil
}

// ProbeDiscoverer suggests the CommonPaths entries that answer a HEAD
// request with 200.
type ProbeDiscoverer struct {
	Client *http.Client
}

// NewProbeDiscoverer creates a ProbeDiscoverer with a per-request timeout.
func NewProbeDiscoverer(timeout time.Duration) *ProbeDiscoverer {
	return &ProbeDiscoverer{Client: &http.Client{Timeout: timeout}}
}

// Discover implements Discoverer. Unreachable pages are skipped.
func (d *ProbeDiscoverer) Discover(ctx context.Context, domain string) ([]model.PageSuggestion, error) {
	base := baseURL(domain)
	out := make([]model.PageSuggestion, 0)
	for _, p := range CommonPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		url := base + p.Path
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			continue
		}
		resp, err := d.Client.Do(req)
		if err != nil {
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			out = append(out, model.PageSuggestion{URL: url, PageType: p.PageType, FoundContent: true})
		}
	}
	return out, nil
}

// Scanner produces the changes detected on a competitor's pages.
// The returned changes need only summary, implications, actions, score and
// optionally PageID; the server fills in ids and timestamps.
type Scanner interface {
	Scan(ctx context.Context, competitor model.Competitor) ([]model.Change, error)
}

// ScannerFunc adapts a function to Scanner.
type ScannerFunc func(ctx context.Context, competitor model.Competitor) ([]model.Change, error)

// Scan implements Scanner.
func (f ScannerFunc) Scan(ctx context.Context, competitor model.Competitor) ([]model.Change, error) {
	return f(ctx, competitor)
}

// QuietScanner never detects a change.
type QuietScanner struct{}

// Scan implements Scanner.
func (QuietScanner) Scan(context.Context, model.Competitor) ([]model.Change, error) {
	return nil, nil
}
