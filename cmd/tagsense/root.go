package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tagsense/tagsense/config"
	"github.com/tagsense/tagsense/telemetry"
)

var (
	version = "0.1.0"

	cfgPath string
	debug   bool

	settings *config.Settings
	logger   zerolog.Logger

	rootCmd = &cobra.Command{
		Use:   "tagsense",
		Short: "Cloud resource tag compliance scanner",
		Long: `TagSense - Cloud Resource Tag Compliance

Scan AWS resources for missing tags, fix them in bulk with per-batch
rollback, and ask an AI assistant about what the scans found.`,
		Version:           version,
		PersistentPreRunE: setup,
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.SetVersionTemplate(`TagSense {{.Version}}
`)
}

// setup loads settings and wires the ambient pieces every command
// needs. API keys come from the environment here and nowhere else.
func setup(cmd *cobra.Command, args []string) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	logger = telemetry.NewLogger("tagsense")

	var err error
	if cfgPath != "" {
		settings, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
	} else {
		settings = config.Default()
	}

	settings.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	settings.LLM.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	return nil
}
