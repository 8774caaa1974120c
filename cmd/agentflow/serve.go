package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentflow/agentflow/internal/observability"
	"github.com/agentflow/agentflow/internal/runtime"
	"github.com/agentflow/agentflow/internal/state"
	"github.com/agentflow/agentflow/pkg/models"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo support flow over HTTP, with Prometheus metrics and tracing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			logger := observability.NewLogger(observability.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat}).WithFields("component", "agentflow-serve")
			defer logger.Sync()
			metrics := observability.NewMetrics()
			recorder := observability.NewEventRecorder(observability.NewMemoryEventStore(10000), logger)

			tracer, shutdown := newTracer(cfg)

			client := newLlmClient(cfg)
			srv := &server{
				logger:   logger,
				metrics:  metrics,
				recorder: recorder,
				tracer:   tracer,
				cfg:      cfg,
				client:   client,
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/healthz", srv.handleHealthz)
			mux.Handle("/run", logger.HTTPMiddleware(http.HandlerFunc(srv.handleRun)))
			mux.HandleFunc("/events", srv.handleEvents)

			httpServer := &http.Server{
				Addr:              cfg.MetricsAddr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			listener, err := net.Listen("tcp", cfg.MetricsAddr)
			if err != nil {
				return err
			}

			logger.Info(cmd.Context(), "agentflow demo server listening", "addr", cfg.MetricsAddr)
			serveErr := make(chan error, 1)
			go func() { serveErr <- httpServer.Serve(listener) }()

			select {
			case <-cmd.Context().Done():
			case err := <-serveErr:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
			return shutdown(shutdownCtx)
		},
	}
	return cmd
}

// newTracer wires an OTLP gRPC exporter per ADDENDUM B; the core engine
// only ever sees the resulting observability.Tracer through runtime.WithTracer.
// An empty Endpoint (the default) returns a no-op tracer.
func newTracer(cfg Config) (*observability.Tracer, func(context.Context) error) {
	return observability.NewTracer(observability.TraceConfig{
		ServiceName: "agentflow",
		Environment: cfg.TraceServiceEnv,
		Endpoint:    cfg.TraceEndpoint,
	})
}

type server struct {
	logger   *observability.Logger
	metrics  *observability.Metrics
	recorder *observability.EventRecorder
	tracer   *observability.Tracer
	cfg      Config
	client   LlmClient
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleEvents streams the runtime event timeline as Server-Sent Events for
// as long as the client stays connected, so an operator can watch a flow
// execute node by node from a terminal or browser tab.
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := s.recorder.Subscribe(64)
	defer s.recorder.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}

type runRequest struct {
	Message string `json:"message"`
}

type runResponse struct {
	FlowName string `json:"flow_name"`
	LastNode string `json:"last_node"`
	Result   string `json:"result,omitempty"`
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	agents := buildRegistries(s.client)
	orch := buildOrchestrator(s.metrics)
	fl := buildSupportFlow()

	opts := []runtime.Option{
		runtime.WithMaxIterations(s.cfg.MaxIterations),
		runtime.WithMaxConcurrency(s.cfg.MaxConcurrency),
		runtime.WithToolOrchestrator(orch),
		runtime.WithMetrics(s.metrics),
		runtime.WithEventRecorder(s.recorder),
		runtime.WithLogger(s.logger),
	}
	if s.tracer != nil {
		opts = append(opts, runtime.WithTracer(s.tracer))
	}
	executor := runtime.NewFlowExecutor(fl, agents, orch.Registry(), opts...)

	fc := state.NewFlowContext(state.NewMemoryStore())
	result, err := executor.Start(r.Context(), fc, models.UserMessage(req.Message))
	if err != nil {
		s.logger.Error(r.Context(), "flow execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := runResponse{FlowName: result.FlowName, LastNode: result.LastNode}
	if result.LastMessage != nil {
		resp.Result = result.LastMessage.Content
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
