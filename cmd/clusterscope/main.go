package main

import (
	"fmt"
	"os"

	"github.com/cuemby/clusterscope/pkg/config"
	"github.com/cuemby/clusterscope/pkg/log"
	"github.com/cuemby/clusterscope/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clusterscope",
	Short: "Clusterscope - Hadoop cluster health checks and snapshots",
	Long: `Clusterscope runs health checks against Cloudera and Hortonworks
Hadoop clusters over their management REST APIs and SSH, and keeps a
history of cluster snapshots.

A snapshot taken less than an hour ago is reused instead of running
another full check.`,
	Version:           Version,
	PersistentPreRunE: initLogging,
	SilenceUsage:      true,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Clusterscope version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "Path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(clustersCmd)
}

// loadConfig reads the file named by --config
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

func initLogging(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = "info"
	}
	log.Init(log.Config{Level: log.Level(level), Output: os.Stderr})
	metrics.SetVersion(Version)
	return nil
}
