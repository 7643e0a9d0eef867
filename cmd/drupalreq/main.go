package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/drupal-entity/pkg/drupalentity/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewRootCommand() *cobra.Command {
	var envFile, baseURL, sourceURL, logLevel string
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "drupalreq",
		Short: "Build Drupal JSON:API requests for content entities",
		Long: `drupalreq builds the HTTP requests used to read, create and update
Drupal content entities through the JSON:API module and prints them as JSON.

Requests are never sent. Pipe the output into your HTTP tooling of choice.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(
				config.WithBaseURL(baseURL),
				config.WithSourceURL(sourceURL),
				config.WithLogLevel(logLevel),
			)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			a.cfg = cfg
			a.logger = cfg.NewLogger(cmd.ErrOrStderr())
			a.logger.Debug("Configuration loaded", "base_url", cfg.BaseURL, "source_url", cfg.SourceURL)
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Drupal base URL (overrides DRUPAL_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&sourceURL, "source", "", "upload source URL (overrides SOURCE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	// Add subcommands
	rootCmd.AddCommand(NewGetCommand(a))
	rootCmd.AddCommand(NewCreateCommand(a))
	rootCmd.AddCommand(NewUpdateCommand(a))
	rootCmd.AddCommand(NewRelationshipCommand(a))
	rootCmd.AddCommand(NewFieldConfigCommand(a))
	rootCmd.AddCommand(NewRequiredFieldsCommand(a))
	rootCmd.AddCommand(NewUploadCommand(a))

	return rootCmd
}
