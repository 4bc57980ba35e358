// Package observability wires OpenTelemetry tracing to a local Datadog
// Agent. Traces flow over OTLP HTTP to the agent, which handles
// authentication, buffering, and forwarding to the Datadog backend.
//
// The agent must have its OTLP receiver enabled (datadog.yaml):
//
//	otlp_config:
//	  receiver:
//	    protocols:
//	      http:
//	        endpoint: "localhost:4318"
//	  traces:
//	    enabled: true
//
// Environment variables:
//   - DD_AGENT_HOST: agent OTLP endpoint (default: localhost:4318)
//   - DD_ENV: environment tag
//   - DD_SERVICE: service name shown in Datadog APM
package observability

import (
	"context"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/bedtimenews/newsagent/internal/log"
)

// DefaultAgentHost is the default Datadog Agent OTLP HTTP endpoint.
const DefaultAgentHost = "localhost:4318"

// Config for the Datadog exporter.
type Config struct {
	AgentHost   string
	Environment string
	ServiceName string
}

// SetupTracing registers a Datadog Agent exporter with Genkit's
// TracerProvider. Must run before genkit.Init so the provider is ready
// when Genkit starts creating spans.
//
// Tracing is best effort: when the exporter cannot be created the
// returned shutdown func is a no-op and the service runs untraced.
func SetupTracing(ctx context.Context, cfg Config, logger log.Logger) func() {
	agentHost := cfg.AgentHost
	if agentHost == "" {
		agentHost = DefaultAgentHost
	}

	// Genkit's TracerProvider reads these at span creation time.
	// os.Setenv is not concurrent-safe, but setup runs exactly once
	// during startup before any goroutines are spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(), // localhost agent, no TLS
	)
	if err != nil {
		logger.Warn("creating datadog exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("datadog tracing enabled",
		"agent", agentHost,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}
