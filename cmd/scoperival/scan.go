package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/scoperival/internal/model"
	"github.com/nao1215/scoperival/internal/registry"
	"github.com/nao1215/scoperival/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [competitor...]",
		Short: "Re-check competitors' tracked pages now",
		Long: `Scan asks the backend to re-scrape the tracked pages of one or more
competitors immediately and analyse what changed. Competitors may be given as
id, id prefix or domain.

A competitor is never scanned twice at the same time. Every scan is recorded
in the local scan journal (see "scoperival history").

Examples:
  # Scan one competitor
  scoperival scan stripe.com

  # Scan several competitors
  scoperival scan stripe.com linear.app

  # Scan everything, three at a time
  scoperival scan --all --concurrency 3`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().BoolP("all", "a", false, "Scan every tracked competitor")
	cmd.Flags().IntP("concurrency", "b", 0,
		fmt.Sprintf("Number of concurrent scans (default from config, %d)", registry.DefaultConcurrency))

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	if all && len(args) > 0 {
		return errors.New("specify competitors or --all, not both")
	}
	if !all && len(args) == 0 {
		return errors.New("no competitors provided (specify one or more competitors, or --all)")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if concurrency <= 0 {
		concurrency = a.cfg.ScanConcurrency
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := a.requireSession(ctx); err != nil {
		return err
	}
	competitors, err := a.registry.List(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(competitors))
	if all {
		for _, c := range competitors {
			ids = append(ids, c.ID)
		}
	} else {
		for _, ref := range args {
			c, err := a.registry.Resolve(ref)
			if err != nil {
				return err
			}
			ids = append(ids, c.ID)
		}
	}

	out := cmd.OutOrStdout()
	if len(ids) == 0 {
		fmt.Fprintln(out, "No competitors to scan.")
		return nil
	}

	names := make(map[string]model.Competitor, len(competitors))
	for _, c := range competitors {
		names[c.ID] = c
	}

	fmt.Fprintf(out, "Scanning %d competitor(s) (concurrency: %d)...\n\n", len(ids), concurrency)
	start := time.Now()
	outcomes, err := a.registry.ScanAll(ctx, ids, concurrency)
	failed := writeScanOutcomes(out, outcomes, names)
	fmt.Fprintf(out, "\nCompleted in %s\n", time.Since(start).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scan(s) failed", failed, len(outcomes))
	}
	return nil
}

// writeScanOutcomes prints one block per scan and returns the number of
// failures.
func writeScanOutcomes(w io.Writer, outcomes []registry.ScanOutcome, competitors map[string]model.Competitor) int {
	failed := 0
	for i, o := range outcomes {
		label := shortID(o.CompetitorID)
		if c, ok := competitors[o.CompetitorID]; ok {
			label = c.CompanyName + " (" + c.Domain + ")"
		}

		if o.Err != nil {
			failed++
			fmt.Fprintf(w, "[%d/%d] %s: FAILED: %s\n", i+1, len(outcomes), label, describeError(o.Err))
			continue
		}
		fmt.Fprintf(w, "[%d/%d] %s: %s\n", i+1, len(outcomes), label, o.Result.Message)
		for _, ch := range o.Result.Changes {
			fmt.Fprintf(w, "    [%s] %s\n", report.SignificanceLabel(ch.SignificanceScore), ch.ChangeSummary)
		}
	}
	return failed
}
