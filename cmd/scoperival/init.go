package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/scoperival/internal/config"
)

//go:embed templates/scoperival.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new Scoperival configuration file",
		Long: `Initialize creates a new .scoperival configuration file in the current directory.

The generated file documents every setting with its default value. Settings
passed as flags are written uncommented; the rest stay commented out.

Examples:
  # Create .scoperival in current directory
  scoperival init

  # Point the CLI at a self-hosted backend
  scoperival init --api-url https://scoperival.example.com

  # Create config file at a specific path, routing traffic through Tor
  scoperival init -o ~/.config/scoperival/config.yaml --proxy 127.0.0.1:9050

  # Force overwrite existing file
  scoperival init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy (host:port) to write into the file")
	cmd.Flags().String("data-dir", "", "Local database directory to write into the file")

	return cmd
}

// templateSetting is a template key that init can fill in.
type templateSetting struct {
	key   string
	value string
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	settings, err := initSettings(cmd)
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := configTemplate.ReadFile("templates/scoperival.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}
	content = fillTemplate(content, settings)

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may name a private backend or proxy.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	for _, s := range settings {
		fmt.Fprintf(out, "  %s: %s\n", s.key, s.value)
	}
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - The backend URL")
	fmt.Fprintln(out, "  - Request timeout and SOCKS5 proxy")
	fmt.Fprintln(out, "  - Scan concurrency")

	return nil
}

// initSettings collects the values given on the command line and validates
// them the same way a loaded configuration is validated. The api-url flag is
// inherited from the root command and absent when init runs on its own.
func initSettings(cmd *cobra.Command) ([]templateSetting, error) {
	var apiURL string
	if f := cmd.Flags().Lookup("api-url"); f != nil {
		apiURL = f.Value.String()
	}
	proxy, err := cmd.Flags().GetString("proxy")
	if err != nil {
		return nil, err
	}
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}

	cfg := config.NewConfig()
	var settings []templateSetting
	if apiURL != "" {
		cfg.APIURL = apiURL
		settings = append(settings, templateSetting{key: "api_url", value: apiURL})
	}
	if proxy != "" {
		cfg.ProxyAddress = proxy
		settings = append(settings, templateSetting{key: "proxy", value: proxy})
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
		settings = append(settings, templateSetting{key: "data_dir", value: dataDir})
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// fillTemplate uncomments the template line of each setting and sets its
// value. Keys the template does not document are ignored.
func fillTemplate(content []byte, settings []templateSetting) []byte {
	if len(settings) == 0 {
		return content
	}
	lines := strings.Split(string(content), "\n")
	for _, s := range settings {
		prefix := "#" + s.key + ":"
		for i, line := range lines {
			if strings.HasPrefix(line, prefix) {
				lines[i] = fmt.Sprintf("%s: %q", s.key, s.value)
				break
			}
		}
	}
	return []byte(strings.Join(lines, "\n"))
}
