package model

import "time"

// UnknownCompetitor is the label shown for changes whose competitor is not
// in the registry.
const UnknownCompetitor = "Unknown"

// DashboardStats is the response of GET /dashboard/stats.
type DashboardStats struct {
	TotalCompetitors        int `json:"total_competitors"`
	TotalTrackedPages       int `json:"total_tracked_pages"`
	RecentChanges           int `json:"recent_changes"`
	HighSignificanceChanges int `json:"high_significance_changes"`
}

// FeedEntry is a Change joined with the competitor it belongs to.
// The join exists for display only; CompetitorName is UnknownCompetitor when
// the referenced competitor is not known.
type FeedEntry struct {
	Change

	CompetitorName   string `json:"competitor_name"`
	CompetitorDomain string `json:"competitor_domain,omitempty"`
}

// Known reports whether the join found the competitor.
func (e FeedEntry) Known() bool {
	return e.CompetitorName != UnknownCompetitor
}

// Overview is everything the dashboard shows at once.
type Overview struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Stats       DashboardStats `json:"stats"`
	Competitors []Competitor   `json:"competitors"`
	Changes     []FeedEntry    `json:"changes"`
}

// CountBySignificance tallies entries per clamped score.
func CountBySignificance(entries []FeedEntry) map[Significance]int {
	counts := make(map[Significance]int, 5)
	for _, e := range entries {
		counts[e.SignificanceScore.Clamp()]++
	}
	return counts
}
