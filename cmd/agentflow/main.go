// Package main provides the demo CLI for the agentflow engine.
//
// agentflow is not a product: it is a reference wiring of the flow engine
// (internal/flow, internal/agent, internal/tool, internal/runtime) behind a
// small support-ticket flow, illustrating every node kind and the ambient
// observability stack (internal/observability) a real deployment would use.
//
// # Basic usage
//
//	agentflow run --message "where is my package"
//	agentflow serve
//
// # Environment variables
//
//   - OPENAI_API_KEY: enables the LLM-backed demo agent; omitted, the demo
//     runs offline against a canned completion
//   - AGENTFLOW_LOG_LEVEL, AGENTFLOW_LOG_FORMAT: logging configuration
//   - AGENTFLOW_METRICS_ADDR: listen address for `serve` (default ":9090")
//   - AGENTFLOW_TRACE_ENDPOINT: OTLP gRPC collector endpoint for `serve`
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := buildRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "agentflow:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "agentflow",
		Short:        "agentflow - configuration-driven multi-agent flow engine demo",
		Version:      fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newRunCmd(), newServeCmd())
	return rootCmd
}
