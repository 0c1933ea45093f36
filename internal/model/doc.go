// Package model defines the data structures shared by the Scoperival client.
//
// The types mirror the JSON documents exchanged with the Scoperival backend:
//   - User: the authenticated account
//   - Competitor and TrackedPage: a monitored company and its pages
//   - PageSuggestion and PageSelection: ephemeral onboarding data
//   - Change and Significance: analysed changes reported by the backend
//   - DashboardStats, FeedEntry and Overview: read-only projections for display
//
// Every type in this package is a plain value. Components that own state
// (session, registry, onboarding) hand out copies, never pointers into their
// internal collections.
package model
