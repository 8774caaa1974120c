package main

import (
	"context"
	"fmt"

	"github.com/agentflow/agentflow/internal/observability"
	"github.com/agentflow/agentflow/internal/runtime"
	"github.com/agentflow/agentflow/internal/state"
	"github.com/agentflow/agentflow/pkg/models"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo support flow once with a single input message",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			logger := observability.NewLogger(observability.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat}).WithFields("component", "agentflow-run")
			defer logger.Sync()
			metrics := observability.NewMetrics()
			recorder := observability.NewEventRecorder(observability.NewMemoryEventStore(1000), logger)

			client := newLlmClient(cfg)
			agents := buildRegistries(client)
			orch := buildOrchestrator(metrics)
			fl := buildSupportFlow()

			executor := runtime.NewFlowExecutor(fl, agents, orch.Registry(),
				runtime.WithMaxIterations(cfg.MaxIterations),
				runtime.WithMaxConcurrency(cfg.MaxConcurrency),
				runtime.WithToolOrchestrator(orch),
				runtime.WithMetrics(metrics),
				runtime.WithEventRecorder(recorder),
				runtime.WithLogger(logger),
			)

			fc := state.NewFlowContext(state.NewMemoryStore())
			result, err := executor.Start(cmd.Context(), fc, models.UserMessage(message))
			if err != nil {
				logger.Error(context.Background(), "flow execution failed", "error", err)
				return err
			}

			fmt.Printf("flow %q finished at node %q\n", result.FlowName, result.LastNode)
			if result.LastMessage != nil {
				fmt.Printf("result: %s\n", result.LastMessage.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&message, "message", "My order hasn't arrived, please escalate to a human.", "input message to send to the flow")
	return cmd
}

func newLlmClient(cfg Config) LlmClient {
	if cfg.OpenAIAPIKey == "" {
		return NewOfflineClient()
	}
	return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
}
