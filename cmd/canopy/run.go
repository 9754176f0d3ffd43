package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/scheduler"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Tick a behavior tree document until it completes",
	Long:  `Compiles the given YAML document and ticks it until the root reports a terminal status, printing the status of every tick.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTree(cmd, args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("max-ticks", 100, "Stop after this many ticks even if still RUNNING")
	runCmd.Flags().Duration("interval", 0, "Delay between ticks")
	runCmd.Flags().Bool("events", false, "Print every lifecycle event")
}

func runTree(cmd *cobra.Command, path string) error {
	maxTicks, _ := cmd.Flags().GetInt("max-ticks")
	interval, _ := cmd.Flags().GetDuration("interval")
	showEvents, _ := cmd.Flags().GetBool("events")

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	def, err := domain.DecodeTree(data)
	if err != nil {
		return err
	}

	eng, err := newEngine(cmd)
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer eng.Close(ctx)

	inst, err := eng.CreateInstanceFromDefinition(ctx, def, scheduler.Config{Mode: scheduler.ModeManual})
	if err != nil {
		return err
	}
	if showEvents {
		inst.Events().Subscribe(printEvent)
	}

	for tick := 1; tick <= maxTicks; tick++ {
		res, err := eng.Tick(ctx, inst.ID(), 1)
		if err != nil {
			return err
		}
		fmt.Printf("tick %3d: %s\n", tick, colorStatus(res.Status))
		if res.Status.Terminal() {
			return nil
		}
		if interval > 0 {
			time.Sleep(interval)
		}
	}
	fmt.Printf("still %s after %d ticks\n", colorStatus(domain.StatusRunning), maxTicks)
	return nil
}
