package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/infohyun/aramcrm-sub001/internal/cli"
	"github.com/infohyun/aramcrm-sub001/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "aramcrm",
	Short: "aramcrm builds CRM automation workflows",
	Long: `aramcrm manages linear automation chains (trigger, conditions, actions,
delays, approvals, notifications) and exposes them over HTTP and MCP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

// openRuntime loads configuration and wires the store. Logs go to stderr so
// stdout stays clean for command output and stdio transports.
func openRuntime(cmd *cobra.Command) (*cli.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cli.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return cli.NewRuntime(ctx, cfg, logger)
}
