// Package main provides the entry point for the Scoperival CLI.
//
// Scoperival monitors competitor websites. The backend scrapes the tracked
// pages and analyses what changed; this client manages the account,
// onboards competitors, triggers scans and renders the change feed.
//
// Usage:
//
//	scoperival login --email you@example.com
//	scoperival add stripe.com --name Stripe
//	scoperival scan --all
//	scoperival changes --markdown -o changes.md
//
// See --help for all available options.
package main

// main is the entry point for Scoperival.
func main() {
	Execute()
}
