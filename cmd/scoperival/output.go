package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/scoperival/internal/report"
)

// addReportFlags registers --json, --markdown and --output.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
}

// reportOptions is the parsed form of the report flags.
type reportOptions struct {
	json     bool
	markdown bool
	output   string
	verbose  bool
}

func getReportOptions(cmd *cobra.Command) (reportOptions, error) {
	var (
		opts reportOptions
		err  error
	)
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.output, err = cmd.Flags().GetString("output"); err != nil {
		return opts, err
	}
	if opts.json && opts.markdown {
		return opts, errors.New("--json and --markdown are mutually exclusive")
	}
	return opts, nil
}

// openReport returns the report destination and a func that closes it.
func openReport(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports describe your competitive strategy; keep them owner-readable only.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter picks the writer for the requested format.
func newReportWriter(w io.Writer, opts reportOptions) report.Writer {
	switch {
	case opts.json:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case opts.markdown:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(opts.verbose))
	}
}

// writeReport opens the destination, renders with fn and closes it.
func writeReport(cmd *cobra.Command, opts reportOptions, fn func(report.Writer) error) error {
	w, closeFn, err := openReport(cmd, opts.output)
	if err != nil {
		return err
	}
	if err := fn(newReportWriter(w, opts)); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if opts.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", opts.output)
	}
	return nil
}
