package model

import (
	"strings"
	"time"
)

// Competitor is a company whose public pages are monitored.
// Competitors are created by the onboarding workflow and owned by the registry.
type Competitor struct {
	// ID is the backend identifier.
	ID string `json:"id"`

	// Domain is the normalised host name, e.g. "stripe.com".
	Domain string `json:"domain"`

	// CompanyName is the display name chosen by the user.
	CompanyName string `json:"company_name"`

	// TrackedPages is the set of monitored pages. A competitor whose onboarding
	// was abandoned after creation has an empty list.
	TrackedPages []TrackedPage `json:"tracked_pages"`

	// CreatedAt is set by backends that expose it.
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// PageCount returns the number of tracked pages.
func (c Competitor) PageCount() int {
	return len(c.TrackedPages)
}

// LastScraped returns the most recent scrape time across all tracked pages,
// or the zero time if no page was scraped yet.
func (c Competitor) LastScraped() time.Time {
	var latest time.Time
	for _, p := range c.TrackedPages {
		if p.LastScraped != nil && p.LastScraped.After(latest) {
			latest = *p.LastScraped
		}
	}
	return latest
}

// NewCompetitor is the body of POST /competitors.
type NewCompetitor struct {
	Domain      string `json:"domain"`
	CompanyName string `json:"company_name"`
}

// TrackedPage is a single monitored URL. It has no lifecycle of its own:
// pages are written together with their competitor's page set.
type TrackedPage struct {
	// ID is assigned by the backend when the page set is saved.
	ID string `json:"id,omitempty"`

	// URL is the page address as suggested by discovery.
	URL string `json:"url"`

	// PageType classifies the page (pricing, features, blog, changelog).
	PageType string `json:"page_type"`

	// LastScraped is nil until the backend fetched the page at least once.
	LastScraped *time.Time `json:"last_scraped,omitempty"`
}

// ShortName returns the last path segment of the page URL, falling back to
// "homepage" for bare domains.
func (p TrackedPage) ShortName() string {
	trimmed := strings.TrimRight(p.URL, "/")
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	i := strings.LastIndex(trimmed, "/")
	if i < 0 || i == len(trimmed)-1 {
		return "homepage"
	}
	return trimmed[i+1:]
}

// PageSuggestion is a candidate page returned by the discovery endpoint.
// Suggestions are never persisted; they only seed the user's selection.
type PageSuggestion struct {
	URL      string `json:"url"`
	PageType string `json:"page_type"`

	// FoundContent reports whether the backend saw the page respond.
	FoundContent bool `json:"found_content,omitempty"`
}

// Selection converts the suggestion into the pair sent to the save endpoint.
func (s PageSuggestion) Selection() PageSelection {
	return PageSelection{URL: s.URL, PageType: s.PageType}
}

// PageSelection is one {url, page_type} pair chosen for tracking.
type PageSelection struct {
	URL      string `json:"url"`
	PageType string `json:"page_type"`
}

// DiscoverRequest is the body of POST /competitors/discover-pages.
type DiscoverRequest struct {
	Domain string `json:"domain"`
}

// DiscoverResponse is the response of POST /competitors/discover-pages.
type DiscoverResponse struct {
	Suggestions []PageSuggestion `json:"suggestions"`
}

// SavePagesRequest is the body of POST /competitors/{id}/pages.
type SavePagesRequest struct {
	URLs []PageSelection `json:"urls"`
}

// Message is the acknowledgement body returned by mutating endpoints.
type Message struct {
	Message string `json:"message"`
}

// ScanResult is the response of POST /competitors/{id}/scan.
type ScanResult struct {
	Message string   `json:"message"`
	Changes []Change `json:"changes,omitempty"`
}
