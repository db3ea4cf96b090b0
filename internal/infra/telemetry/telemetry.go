package telemetry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/questforge/platform-guard/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	tracer *TracerProvider
}

// Attach configures telemetry exporters and returns a provider handle.
// Tracing stays disabled until an OTLP endpoint is configured.
func Attach(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Telemetry.OTLPEndpoint == "" {
		logger.Debug("Tracing disabled, no OTLP endpoint configured")
		return &Provider{}, nil
	}

	tracer, err := NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, logger)
	if err != nil {
		return nil, fmt.Errorf("init tracer provider: %w", err)
	}

	return &Provider{tracer: tracer}, nil
}

// Shutdown flushes and stops any active exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tracer == nil {
		return nil
	}
	return p.tracer.Shutdown(ctx)
}
