package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/scoperival/internal/feed"
	"github.com/nao1215/scoperival/internal/model"
	"github.com/nao1215/scoperival/internal/report"
)

// NewChangesCmd creates the changes command.
func NewChangesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Show detected competitor changes, newest first",
		Long: `Changes lists the changes the backend detected on tracked pages, with the
analysis of each one: summary, strategic implications, significance (1-5) and
suggested actions.

Examples:
  # Everything, as text
  scoperival changes

  # Only high and critical changes of one competitor, with full analysis
  scoperival changes --min-significance 4 --competitor stripe.com --details

  # Changes of the last week as a Markdown report
  scoperival changes --since 168h --markdown -o reports/changes.md`,
		Args: cobra.NoArgs,
		RunE: runChangesCmd,
	}

	addReportFlags(cmd)
	cmd.Flags().Int("min-significance", 0, "Only show changes scored at least this (1-5)")
	cmd.Flags().String("competitor", "", "Only show changes of this competitor (id, id prefix or domain)")
	cmd.Flags().Duration("since", 0, "Only show changes newer than this, e.g. 72h")
	cmd.Flags().IntP("limit", "l", 0, "Show at most this many changes")
	cmd.Flags().BoolP("details", "d", false, "Include implications and suggested actions in text output")

	return cmd
}

func runChangesCmd(cmd *cobra.Command, _ []string) error {
	opts, err := getReportOptions(cmd)
	if err != nil {
		return err
	}
	if opts.verbose, err = cmd.Flags().GetBool("details"); err != nil {
		return err
	}
	filter, competitorRef, err := getFeedFilter(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := a.requireSession(ctx); err != nil {
		return err
	}
	// The feed joins against the registry, so load it first.
	if _, err := a.registry.List(ctx); err != nil {
		return err
	}
	if competitorRef != "" {
		c, err := a.registry.Resolve(competitorRef)
		if err != nil {
			return err
		}
		filter.CompetitorID = c.ID
	}

	entries, err := a.feed.Load(ctx, filter)
	if err != nil {
		return err
	}
	return writeReport(cmd, opts, func(w report.Writer) error {
		_, err := w.WriteFeed(entries)
		return err
	})
}

func getFeedFilter(cmd *cobra.Command) (feed.Filter, string, error) {
	var filter feed.Filter

	minSig, err := cmd.Flags().GetInt("min-significance")
	if err != nil {
		return filter, "", err
	}
	if minSig < 0 || minSig > int(model.SignificanceCritical) {
		return filter, "", fmt.Errorf("--min-significance must be between 1 and %d", model.SignificanceCritical)
	}
	filter.MinSignificance = model.Significance(minSig)

	since, err := cmd.Flags().GetDuration("since")
	if err != nil {
		return filter, "", err
	}
	if since > 0 {
		filter.Since = time.Now().Add(-since)
	}

	if filter.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return filter, "", err
	}

	competitor, err := cmd.Flags().GetString("competitor")
	if err != nil {
		return filter, "", err
	}
	return filter, competitor, nil
}
