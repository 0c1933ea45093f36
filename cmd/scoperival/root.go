package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/scoperival/internal/config"
)

// NewRootCmd creates the root command for Scoperival.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scoperival",
		Short: "Monitor competitor websites for strategic changes",
		Long: `Scoperival tracks the pricing, feature, blog and changelog pages of your
competitors and reports what changed, how significant it is and what to do
about it.

Configuration is read from (lowest to highest precedence) built-in defaults,
a YAML file (.scoperival, $XDG_CONFIG_HOME/scoperival/config.yaml or
~/.scoperival), .env and SCOPERIVAL_* environment variables, and flags.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .scoperival in current, XDG config or home directory)")
	cmd.PersistentFlags().String("api-url", "",
		"Backend origin (default "+config.DefaultAPIURL+")")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewRegisterCmd())
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewLogoutCmd())
	cmd.AddCommand(NewWhoamiCmd())
	cmd.AddCommand(NewCompetitorsCmd())
	cmd.AddCommand(NewAddCmd())
	cmd.AddCommand(NewDeleteCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewChangesCmd())
	cmd.AddCommand(NewDashboardCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewMockServerCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describeError(err))
		os.Exit(1)
	}
}
