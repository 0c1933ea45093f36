// Package onboarding turns a bare domain into a tracked competitor.
//
// A Controller walks one competitor through three backend round trips:
// create the competitor, discover candidate pages, and save the pages the
// user kept. Every discovered page starts selected; the user opts out.
//
// Creation and page saving are separate requests. A competitor created by
// a flow that is later abandoned or fails during discovery remains on the
// backend with no tracked pages.
package onboarding
