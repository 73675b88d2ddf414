package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"loanportal/internal/config"
	"loanportal/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "loanportal",
	Short: "Loan portal web front end",
	Long: `loanportal serves the browser front end of the loan and collections
backend: entity pages with related records, loan statements and the
admin console. Every record lives in the backend; the portal keeps only
sessions.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
}

// loadConfig reads the config file and installs the logger it describes.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, logging.Setup(cfg.Logging.Level, cfg.Logging.Format), nil
}
