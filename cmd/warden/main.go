// Command warden runs allow-listed binaries on behalf of AI agents.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/deixis/warden"
	"github.com/deixis/warden/internal/agent"
	"github.com/deixis/warden/internal/authz"
	"github.com/deixis/warden/internal/config"
	"github.com/deixis/warden/internal/logging"
	wardenmcp "github.com/deixis/warden/internal/mcp"
	"github.com/deixis/warden/internal/runner"
	"github.com/deixis/warden/internal/sandbox"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(int(exit))
		}
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		os.Exit(1)
	}
}

// exitError carries a child's exit status out of the exec command.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "warden",
		Short:         "Run allow-listed binaries on behalf of AI agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default: nearest .warden)")

	cmd.AddCommand(
		newServeCmd(opts),
		newExecCmd(opts),
		newAgentsCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// app is the wired dependency graph shared by all commands.
type app struct {
	log     *slog.Logger
	agents  *agent.StaticStore
	service *sandbox.Service
}

func newApp(opts *rootOptions) (*app, error) {
	var (
		loaded *config.LoadResult
		err    error
	)
	if opts.configPath != "" {
		loaded, err = config.LoadFile(opts.configPath)
	} else {
		var wd string
		wd, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		loaded, err = config.Load(wd)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	// stdout belongs to the MCP stdio transport and to streamed child output.
	log := logging.New(cfg.LogLevel(), cfg.LogFormat(), os.Stderr)
	if loaded.Path != "" {
		log.Debug("config loaded", slog.String("path", loaded.Path), slog.Int("agents", len(cfg.Agents)))
	}

	agents := agent.NewStaticStore(cfg.Agents)
	return &app{
		log:    log,
		agents: agents,
		service: &sandbox.Service{
			Gate:   &authz.Gate{Agents: agents},
			Runner: &runner.Runner{Registry: runner.NewRegistry()},
			Logger: log,
		},
	}, nil
}

// --- serve ---

func newServeCmd(opts *rootOptions) *cobra.Command {
	var httpAddr string
	var instructions bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), wardenmcp.Instructions)
				return nil
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			server := wardenmcp.NewServer(a.service, a.agents)
			if httpAddr != "" {
				return serveHTTP(cmd.Context(), a.log, server, httpAddr)
			}
			a.log.Info("serving MCP over stdio")
			return server.Run(cmd.Context(), &mcpsdk.StdioTransport{})
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on address (e.g. :9090)")
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	return cmd
}

func serveHTTP(ctx context.Context, log *slog.Logger, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Info("listening", slog.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- version ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), warden.Version)
		},
	}
}
