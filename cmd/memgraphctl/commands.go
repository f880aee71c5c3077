package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"memgraph/application/commands"
	"memgraph/application/queries"
	"memgraph/infrastructure/di"
	"memgraph/interfaces/http/server"
	"memgraph/pkg/auth"
)

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return c.withContainer(ctx, func(container *di.Container) error {
				if addr != "" {
					container.Config.ServerAddress = addr
				}
				if cmd.Flags().Changed("watch") {
					container.Config.EnableWatcher = watch
				}
				return server.New(container).Run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: from configuration)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reindex when workspace markdown changes")
	return cmd
}

func (c *cli) graphCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the knowledge graph, bootstrapping it if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd.Context(), func(container *di.Container) error {
				result, err := container.QueryBus.Ask(cmd.Context(), queries.GetMemoryGraphQuery{Reset: reset})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Discard the stored graph and rebuild it")
	return cmd
}

func (c *cli) saveCmd() *cobra.Command {
	var reindex bool

	cmd := &cobra.Command{
		Use:   "save <file|->",
		Short: "Replace the stored graph with a JSON document",
		Long:  "Reads a graph document from a file, or from stdin when the argument is \"-\", repairs it and stores it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return c.send(cmd, commands.SaveGraphCommand{Graph: raw, Reindex: &reindex})
		},
	}
	cmd.Flags().BoolVar(&reindex, "reindex", true, "Refresh the chunk index after saving")
	return cmd
}

func (c *cli) publishCmd() *cobra.Command {
	var reindex bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Write the graph snapshot section into the memory document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.send(cmd, commands.PublishMemoryCommand{Reindex: &reindex})
		},
	}
	cmd.Flags().BoolVar(&reindex, "reindex", true, "Refresh the chunk index after publishing")
	return cmd
}

func (c *cli) reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the chunk index from workspace documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.send(cmd, commands.ReindexCommand{Trigger: "manual"})
		},
	}
}

func (c *cli) eventsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the workspace's most recent domain events from the event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd.Context(), func(container *di.Container) error {
				if container.EventLog == nil {
					return errors.New("EVENT_TABLE is not configured")
				}
				records, err := container.EventLog.Recent(cmd.Context(), container.Layout.Root, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events")
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var (
		subject string
		email   string
		roles   []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token signed with the configured JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not configured")
			}

			gen, err := auth.NewJWTGenerator(auth.JWTConfig{SecretKey: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, ttl)
			if err != nil {
				return err
			}
			token, err := gen.GenerateToken(subject, email, roles)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role claim, repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func (c *cli) send(cmd *cobra.Command, command interface{ Validate() error }) error {
	return c.withContainer(cmd.Context(), func(container *di.Container) error {
		result, err := container.CommandBus.Send(cmd.Context(), command)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	})
}

func readInput(stdin io.Reader, name string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("read graph document: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("graph document %s is not valid JSON", name)
	}
	return data, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
