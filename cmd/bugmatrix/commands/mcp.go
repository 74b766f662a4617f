package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/bugmatrix/internal/mcp"
	"github.com/Sumatoshi-tech/bugmatrix/internal/observability"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/version"
)

// NewMCPCommand creates the mcp command that serves the classification
// tools over stdio.
func NewMCPCommand() *cobra.Command {
	var (
		debug     bool
		rulesFile string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server on stdio transport",
		Long: `Start a Model Context Protocol server that exposes bug classification
and title clustering as tools for AI agents.

Logs go to stderr; stdout carries the protocol.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd, debug, rulesFile)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging to stderr")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "alternative heuristic rule file")

	return cmd
}

func runMCP(cmd *cobra.Command, debug bool, rulesFile string) error {
	obsCfg := observability.ConfigFromEnv()
	obsCfg.Run.Mode = observability.ModeMCP
	obsCfg.Run.Version = version.Version
	obsCfg.LogJSON = true
	obsCfg.LogOutput = cmd.ErrOrStderr()

	if debug {
		obsCfg.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	ruleSet, err := loadRules(rulesFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	server := mcp.NewServer(mcp.ServerDeps{
		Logger: providers.Logger,
		Tracer: providers.Tracer,
		Rules:  ruleSet,
	})

	providers.Logger.Info("mcp server starting", "tools", server.ListToolNames())

	return server.Run(ctx)
}
