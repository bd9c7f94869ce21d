// scriptreview checks video scripts for legal and platform policy risk.
//
// Usage:
//
//	scriptreview review episode.md --meta case.yaml
//	scriptreview show <review-id>
//	scriptreview list
//	scriptreview serve mcp
//	scriptreview serve http --addr :8080
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scriptreview/internal/config"
	"scriptreview/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// cfg is loaded once per invocation by the root pre-run hook.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "scriptreview",
	Short: "Legal and policy risk review for video scripts",
	Long: `scriptreview sends a script to several independent models, cross-validates
their legal findings, checks platform policy and case research, and produces
a verdict with findings that need counsel flagged.

Configuration is read from .scriptreview/config.yaml when present.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: loadConfig,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", config.DefaultPath, "Config file path")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: from config)")
	f.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text or json (default: from config)")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.LoadOrDefault(rootFlags.configPath)
	if err != nil {
		return err
	}
	if rootFlags.logLevel != "" {
		c.Log.Level = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		c.Log.Format = rootFlags.logFormat
	}
	logging.Init(logging.ParseLevel(c.Log.Level), c.Log.Format, cmd.ErrOrStderr())
	cfg = c
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "scriptreview %s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
