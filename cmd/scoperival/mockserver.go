package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/scoperival/internal/log"
	"github.com/nao1215/scoperival/internal/mockapi"
)

// defaultMockAddr matches config.DefaultAPIURL.
const defaultMockAddr = "127.0.0.1:8001"

// NewMockServerCmd creates the mock-server command.
func NewMockServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory Scoperival backend for local development",
		Long: `Mock-server serves the Scoperival API from memory on --addr. Accounts,
competitors and changes are lost when it stops.

By default page discovery suggests the usual pages (/pricing, /features,
/blog, /changelog, ...) without contacting the competitor. With --probe it
sends a HEAD request to each and suggests only those that answer 200.
Scans never detect changes.

Examples:
  scoperival mock-server
  scoperival mock-server --addr 127.0.0.1:9000 --probe`,
		Args: cobra.NoArgs,
		RunE: runMockServerCmd,
	}

	cmd.Flags().String("addr", defaultMockAddr, "Listen address")
	cmd.Flags().Bool("probe", false, "Probe competitor sites during page discovery")
	cmd.Flags().Duration("token-ttl", mockapi.DefaultTokenTTL, "Lifetime of issued access tokens")

	return cmd
}

func runMockServerCmd(cmd *cobra.Command, _ []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}
	probe, err := cmd.Flags().GetBool("probe")
	if err != nil {
		return err
	}
	ttl, err := cmd.Flags().GetDuration("token-ttl")
	if err != nil {
		return err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}

	logger := log.New(cmd.ErrOrStderr(), log.Options{Verbose: verbose, JSON: jsonLogs})
	slog.SetDefault(logger)

	opts := []mockapi.Option{
		mockapi.WithLogger(logger),
		mockapi.WithTokenTTL(ttl),
	}
	if probe {
		opts = append(opts, mockapi.WithDiscoverer(mockapi.NewProbeDiscoverer(10*time.Second)))
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Mock backend on http://%s/api (Ctrl+C to stop)\n", addr)
	return mockapi.New(opts...).ListenAndServe(ctx, addr)
}
