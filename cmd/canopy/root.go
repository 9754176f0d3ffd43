package main

import (
	"fmt"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/adapters/redis"
)

var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Canopy is a behavior tree engine",
	Long:  `Canopy compiles declarative YAML behavior tree documents and ticks them with live debugging, scheduling and versioned storage.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("redis", "", "Redis address for tree storage (default: in-memory)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
}

// newEngine assembles an engine from the persistent flags.
func newEngine(cmd *cobra.Command) (*canopy.Engine, error) {
	level, err := parseLevel(cmd)
	if err != nil {
		return nil, err
	}
	opts := []canopy.Option{canopy.WithLogger(logging.New(level))}

	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: addr})
		opts = append(opts, canopy.WithStore(redis.NewFromClient(client)))
	}
	return canopy.New(opts...), nil
}

func parseLevel(cmd *cobra.Command) (slog.Level, error) {
	name, _ := cmd.Flags().GetString("log-level")
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
