package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/scoperival/internal/report"
)

// NewDashboardCmd creates the dashboard command.
func NewDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show statistics, competitors and recent changes at a glance",
		Long: `Dashboard loads the backend statistics, the competitor list and the change
feed concurrently and renders them as one overview.

Examples:
  scoperival dashboard
  scoperival dashboard --markdown -o dashboard.md`,
		Args: cobra.NoArgs,
		RunE: runDashboardCmd,
	}
	addReportFlags(cmd)
	cmd.Flags().BoolP("details", "d", false, "Include implications and suggested actions in text output")
	return cmd
}

func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	opts, err := getReportOptions(cmd)
	if err != nil {
		return err
	}
	if opts.verbose, err = cmd.Flags().GetBool("details"); err != nil {
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
	overview, err := a.dashboard.Load(ctx)
	if err != nil {
		return err
	}
	return writeReport(cmd, opts, func(w report.Writer) error {
		_, err := w.WriteOverview(overview)
		return err
	})
}
