package model

import "time"

// Significance is the 1-5 importance rating assigned by the backend's
// analysis engine.
type Significance int

const (
	// SignificanceMinimal is cosmetic wording or layout churn.
	SignificanceMinimal Significance = iota + 1

	// SignificanceLow is a minor content update.
	SignificanceLow

	// SignificanceModerate is a noticeable update worth reading.
	SignificanceModerate

	// SignificanceHigh is a strategic change such as new pricing or a launch.
	SignificanceHigh

	// SignificanceCritical is a change that likely requires a response.
	SignificanceCritical
)

// HighSignificanceThreshold is the score from which a change counts as
// "high significance" on the dashboard.
const HighSignificanceThreshold = SignificanceHigh

// Clamp returns s forced into the 1-5 range.
// The backend owns the score; clamping only keeps display code total.
func (s Significance) Clamp() Significance {
	switch {
	case s < SignificanceMinimal:
		return SignificanceMinimal
	case s > SignificanceCritical:
		return SignificanceCritical
	default:
		return s
	}
}

// IsHigh reports whether the score meets HighSignificanceThreshold.
func (s Significance) IsHigh() bool {
	return s >= HighSignificanceThreshold
}

// String returns an upper-case label for the score.
func (s Significance) String() string {
	switch s {
	case SignificanceMinimal:
		return "MINIMAL"
	case SignificanceLow:
		return "LOW"
	case SignificanceModerate:
		return "MODERATE"
	case SignificanceHigh:
		return "HIGH"
	case SignificanceCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// AllSignificances lists the scores from most to least significant.
func AllSignificances() []Significance {
	return []Significance{
		SignificanceCritical,
		SignificanceHigh,
		SignificanceModerate,
		SignificanceLow,
		SignificanceMinimal,
	}
}

// Change is an analysed modification of a tracked page.
// Changes are produced entirely by the backend and are read-only here.
type Change struct {
	ID                    string       `json:"id"`
	CompetitorID          string       `json:"competitor_id"`
	PageID                string       `json:"page_id,omitempty"`
	ChangeSummary         string       `json:"change_summary"`
	StrategicImplications string       `json:"strategic_implications"`
	SuggestedActions      []string     `json:"suggested_actions"`
	SignificanceScore     Significance `json:"significance_score"`
	CreatedAt             time.Time    `json:"created_at"`
}
