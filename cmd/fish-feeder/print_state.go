package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sweeney/fish-feeder/internal/config"
	"github.com/sweeney/fish-feeder/internal/gpio"
	"github.com/sweeney/fish-feeder/internal/logic"
)

var printStateCmd = &cobra.Command{
	Use:   "print-state",
	Short: "Print the limit switch state and the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		buttons, err := gpio.NewRealButtons(cfg.GPIOPins(), func(logic.ButtonEvent) {})
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer buttons.Close()

		return printState(cmd.OutOrStdout(), cfg, buttons)
	},
}

func printState(w io.Writer, cfg *config.Config, limit interface{ LimitClear() (bool, error) }) error {
	clear, err := limit.LimitClear()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	limitState := "PRESSED"
	if clear {
		limitState = "CLEAR"
	}

	geo := cfg.Geometry()
	fmt.Fprintf(w, "Limit: %s\n", limitState)
	fmt.Fprintf(w, "Feeding time: %s %s\n", cfg.FeedingTime, cfg.Timezone)
	fmt.Fprintf(w, "Buckets: %d x %d steps (first %d, ceiling %d)\n",
		geo.BucketCount, geo.StepsPerBucket, geo.FirstBucketSteps, geo.Limit())
	fmt.Fprintf(w, "Manual extend: %t\n", cfg.ManualExtend)
	return nil
}
