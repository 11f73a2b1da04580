package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/version"
)

var (
	cfgFile  string
	homeDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "rpgext",
	Short: "TTRPG PDF content extraction and classification pipeline",
	Long: `rpgext ingests tabletop RPG books as PDFs, detects the game system,
categorizes each section, and stores the results in DefraDB plus a
pgvector similarity index.

The pipeline includes:
  - PDF text extraction with layout hints (columns, tables)
  - Heading-based section segmentation
  - Game system detection with provider fallback ladder
  - Per-section content categorization
  - Dual-store persistence with deterministic re-import`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.rpgext/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "rpgext home directory (default: ~/.rpgext)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn, error",
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// API keys commonly live in a local .env during development
		_ = godotenv.Load()

		level := slog.LevelInfo
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	}

	rootCmd.AddCommand(versionCmd)
}
