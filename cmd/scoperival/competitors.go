package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/scoperival/internal/model"
	"github.com/nao1215/scoperival/internal/onboarding"
	"github.com/nao1215/scoperival/internal/registry"
	"github.com/nao1215/scoperival/internal/report"
)

// NewCompetitorsCmd creates the competitors command.
func NewCompetitorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "competitors",
		Aliases: []string{"ls"},
		Short:   "List tracked competitors",
		Args:    cobra.NoArgs,
		RunE:    runCompetitorsCmd,
	}
	cmd.Flags().BoolP("pages", "p", false, "Show every tracked page")
	return cmd
}

func runCompetitorsCmd(cmd *cobra.Command, _ []string) error {
	showPages, err := cmd.Flags().GetBool("pages")
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
	competitors, err := a.registry.List(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(competitors) == 0 {
		fmt.Fprintln(out, "No competitors tracked yet. Add one with `scoperival add <domain> --name <company>`.")
		return nil
	}
	writeCompetitorTable(out, competitors, showPages)
	return nil
}

func writeCompetitorTable(w io.Writer, competitors []model.Competitor, showPages bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPANY\tDOMAIN\tPAGES\tTYPES")
	for _, c := range competitors {
		types := make([]string, 0, len(c.TrackedPages))
		seen := make(map[string]bool)
		for _, p := range c.TrackedPages {
			label := report.PageTypeLabel(p.PageType)
			if !seen[label] {
				seen[label] = true
				types = append(types, label)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", shortID(c.ID), c.CompanyName, c.Domain, c.PageCount(), strings.Join(types, ", "))
		if showPages {
			for _, p := range c.TrackedPages {
				fmt.Fprintf(tw, "\t  %s\t%s\t\t\n", p.ShortName(), p.URL)
			}
		}
	}
	_ = tw.Flush()
}

// shortID abbreviates backend ids for tables. Resolve accepts the prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// NewAddCmd creates the add command.
func NewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <domain>",
		Short: "Start tracking a competitor",
		Long: `Add onboards a competitor: it creates the competitor, asks the backend to
discover pages worth tracking, selects all of them and saves the selection.

Use --exclude to drop discovered pages, or --only to keep just the listed ones.
Pages are matched by full URL or by their last path segment ("pricing").

If discovery or saving fails the competitor remains with the pages saved so
far; delete it with "scoperival delete" or retry with "scoperival add".

Examples:
  scoperival add stripe.com --name Stripe
  scoperival add https://www.linear.app --name Linear --exclude blog --exclude news
  scoperival add notion.so --name Notion --only pricing --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: runAddCmd,
	}

	cmd.Flags().StringP("name", "n", "", "Company name shown in reports")
	cmd.Flags().StringSlice("exclude", nil, "Discovered page to skip (URL or last path segment)")
	cmd.Flags().StringSlice("only", nil, "Track only these discovered pages (URL or last path segment)")
	cmd.Flags().Bool("dry-run", false, "Show the pages that would be tracked and abandon onboarding")
	_ = cmd.MarkFlagRequired("name")
	cmd.MarkFlagsMutuallyExclusive("exclude", "only")

	return cmd
}

func runAddCmd(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}
	exclude, err := cmd.Flags().GetStringSlice("exclude")
	if err != nil {
		return err
	}
	only, err := cmd.Flags().GetStringSlice("only")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
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

	out := cmd.OutOrStdout()
	suggestions, err := a.onboard.Start(ctx, model.NewCompetitor{Domain: args[0], CompanyName: name})
	if err != nil {
		warnWithoutPages(cmd, a.onboard.State().CompetitorID)
		a.onboard.Abandon()
		return err
	}
	state := a.onboard.State()
	id := state.CompetitorID
	fmt.Fprintf(out, "Created %s (%s), id %s\n", state.CompanyName, state.Domain, shortID(id))

	if len(suggestions) == 0 {
		fmt.Fprintln(out, "No pages were discovered.")
	} else {
		if err := applySelection(a.onboard, suggestions, exclude, only); err != nil {
			warnWithoutPages(cmd, id)
			a.onboard.Abandon()
			return err
		}
		writeSelection(out, a.onboard.State())
	}

	if dryRun {
		a.onboard.Abandon()
		fmt.Fprintln(out, "Dry run: no pages saved.")
		warnWithoutPages(cmd, id)
		return nil
	}

	msg, err := a.onboard.Save(ctx)
	if err != nil {
		warnWithoutPages(cmd, id)
		a.onboard.Abandon()
		return err
	}
	fmt.Fprintln(out, msg)
	return nil
}

// warnWithoutPages tells the user that a created competitor was left
// without tracked pages and how to remove it.
func warnWithoutPages(cmd *cobra.Command, id string) {
	if id == "" {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(),
		"Competitor %s was created without pages. Remove it with: scoperival delete %s\n",
		shortID(id), shortID(id))
}

// applySelection narrows the default all-selected set.
func applySelection(c *onboarding.Controller, suggestions []model.PageSuggestion, exclude, only []string) error {
	if len(only) > 0 {
		if err := c.DeselectAll(); err != nil {
			return err
		}
		for _, ref := range only {
			s, err := matchSuggestion(suggestions, ref)
			if err != nil {
				return err
			}
			if err := c.Select(s.URL); err != nil {
				return err
			}
		}
	}
	for _, ref := range exclude {
		s, err := matchSuggestion(suggestions, ref)
		if err != nil {
			return err
		}
		if err := c.Deselect(s.URL); err != nil {
			return err
		}
	}
	return nil
}

// matchSuggestion finds a suggestion by exact URL or last path segment.
func matchSuggestion(suggestions []model.PageSuggestion, ref string) (model.PageSuggestion, error) {
	for _, s := range suggestions {
		if s.URL == ref {
			return s, nil
		}
	}
	for _, s := range suggestions {
		if strings.EqualFold(model.TrackedPage{URL: s.URL}.ShortName(), ref) {
			return s, nil
		}
	}
	return model.PageSuggestion{}, fmt.Errorf("%w: %s", onboarding.ErrUnknownPage, ref)
}

func writeSelection(w io.Writer, state onboarding.State) {
	fmt.Fprintln(w, "\nDiscovered pages:")
	for _, s := range state.Suggestions {
		mark := " "
		if state.IsSelected(s.URL) {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %-10s %s\n", mark, report.PageTypeLabel(s.PageType), s.URL)
	}
	fmt.Fprintln(w)
}

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <competitor>",
		Aliases: []string{"rm"},
		Short:   "Stop tracking a competitor and delete its changes",
		Long: `Delete removes a competitor together with its tracked pages and all detected
changes. The competitor may be given as id, id prefix or domain.

You are asked to confirm unless --yes is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runDeleteCmd,
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func runDeleteCmd(cmd *cobra.Command, args []string) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}

	confirm := func(_ context.Context, c model.Competitor) (bool, error) {
		if yes {
			return true, nil
		}
		return confirmOnStdin(cmd, fmt.Sprintf("Delete %s (%s) and all its changes?", c.CompanyName, c.Domain))
	}

	a, err := newApp(cmd, withConfirm(confirm))
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if _, err := a.registry.List(ctx); err != nil {
		return err
	}
	c, err := a.registry.Resolve(args[0])
	if err != nil {
		return err
	}

	if err := a.registry.Remove(ctx, c.ID); err != nil {
		if errors.Is(err, registry.ErrNotConfirmed) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s).\n", c.CompanyName, c.Domain)
	return nil
}
