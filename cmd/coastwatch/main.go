package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mr1hm/coastwatch/internal/config"
	"github.com/mr1hm/coastwatch/internal/logging"
)

var (
	envFile string
	rootCmd = &cobra.Command{
		Use:   "coastwatch",
		Short: "Coastal hazard monitoring dashboard backend.",
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "The env file to read.")

	rootCmd.AddCommand(serveCmd, seedCmd, queueCmd)
}

func initConfig() {
	if err := godotenv.Load(envFile); err != nil {
		slog.Debug("no env file loaded", "path", envFile, "error", err)
	}
}

// loadConfig reads the environment and installs the default logger.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg
}
