package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"memgraph/infrastructure/config"
	"memgraph/infrastructure/di"
)

// cli holds the global flags shared by every subcommand
type cli struct {
	configFile string
	workspace  string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "memgraphctl",
		Short: "Inspect and maintain an agent workspace knowledge graph",
		Long: `memgraphctl reads, saves and publishes the knowledge graph of an agent
workspace without going through the HTTP API.

Configuration comes from defaults, the optional --config YAML file and the
environment, in that order. --workspace and --log-level override all three.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "YAML configuration file (default: $CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVarP(&c.workspace, "workspace", "w", "", "Workspace directory (default: from configuration)")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		c.serveCmd(),
		c.graphCmd(),
		c.saveCmd(),
		c.publishCmd(),
		c.reindexCmd(),
		c.eventsCmd(),
		c.tokenCmd(),
	)
	return rootCmd
}

// loadConfig applies the global flags on top of the loaded configuration
func (c *cli) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.configFile != "" {
		cfg, err = config.LoadConfigFrom(c.configFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	if c.workspace != "" {
		cfg.WorkspaceDir = c.workspace
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withContainer wires the application for one command and tears it down
// afterwards.
func (c *cli) withContainer(ctx context.Context, fn func(*di.Container) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize container: %w", err)
	}
	defer func() {
		cleanup()
		_ = container.Logger.Sync()
	}()

	return fn(container)
}
