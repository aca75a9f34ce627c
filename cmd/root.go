// Package cmd implements the idearium CLI.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/idearium/internal/config"
)

var (
	configPath string
	verbose    bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idearium",
		Short: "Token-budgeted agent memory and chat loop",
		Long: `idearium runs an LLM agent whose conversation memory lives in a
token-budgeted store with pluggable trimming: evict the oldest, summarize
into a digest, or archive to full-text-searchable storage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./idearium.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(chatCmd())
	cmd.AddCommand(archiveCmd())
	cmd.AddCommand(configCmd())
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	for _, name := range []string{"idearium.yaml", "idearium.yml", "idearium.json5"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".idearium", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "idearium.yaml"
}

// loadConfig loads the resolved config file, falling back to defaults when
// no file exists.
func loadConfig() (*config.Config, error) {
	path := resolveConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Debug("no config file found, using defaults", "path", path)
		return config.Default(), nil
	}
	return config.Load(path)
}

// setupLogging configures the process-wide slog default.
func setupLogging(cfg config.LoggingConfig) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
