package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	cfg      *Config
)

var rootCmd = &cobra.Command{
	Use:   "studyroom",
	Short: "Study room timer daemon and tools",
	Long: `studyroom keeps the shared study room timer in sync between the host's
commands, server-pushed events and a local record that survives restarts.

Run "studyroom serve" for the daemon and shell API, or use the timer
subcommands for one-off host commands.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	if cfgFile == "" {
		cfgFile = os.Getenv("STUDYROOM_CONFIG")
	}

	var err error
	cfg, err = loadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}

	return setupLogging(cfg)
}

func setupLogging(cfg *Config) error {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, timerCmd, watchCmd, publishCmd)
}
