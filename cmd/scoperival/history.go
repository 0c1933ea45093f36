package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/scoperival/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [competitor]",
		Short: "Show the local journal of scans run from this machine",
		Long: `History lists the scans triggered from this machine, newest first. The
journal is kept in the local database and works offline.

A competitor may be given as full id. Without one, all scans are shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}
	cmd.Flags().IntP("limit", "l", 20, "Show at most this many scans (0 for all)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	var competitorID string
	if len(args) == 1 {
		competitorID = args[0]
	}

	records, err := a.db.ScanHistory(cmd.Context(), competitorID, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No scans recorded yet.")
		return nil
	}
	writeHistory(out, records)
	return nil
}

func writeHistory(w io.Writer, records []model.ScanRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCOMPETITOR\tSTATUS\tCHANGES\tDURATION\tDETAIL")
	for _, r := range records {
		name := r.CompetitorName
		if name == "" {
			name = shortID(r.CompetitorID)
		}
		detail := r.Message
		if r.Status == model.ScanFailed {
			detail = r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Timestamp.Local().Format(time.DateTime),
			name,
			r.Status,
			r.ChangesDetected,
			r.Duration.Round(time.Millisecond),
			detail,
		)
	}
	_ = tw.Flush()
}
