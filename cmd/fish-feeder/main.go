// Command fish-feeder drives an automatic fish feeder: a stepper-driven
// bucket wheel, two buttons, a limit switch and a buzzer. It feeds once a day
// and publishes what it does to MQTT.
package main

import (
	"fmt"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/sweeney/fish-feeder/internal/config"
)

var (
	configPath = config.DefaultPath
	verbose    = false

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:          "fish-feeder",
	Short:        "Automatic fish feeder daemon",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if verbose {
			logLevel = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
	// No RunE - defaults to showing help when no subcommand is provided
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(printStateCmd)
	rootCmd.AddCommand(playCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded config", "path", configPath, "feeding_time", cfg.FeedingTime)
	return cfg, nil
}
