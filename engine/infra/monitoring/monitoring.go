package monitoring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/compozy/assetflow/engine/pipeline"
	"github.com/compozy/assetflow/pkg/logger"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Service records task metrics and dumps them to a Prometheus textfile.
type Service struct {
	exporter          *prometheus.Exporter
	provider          *sdkmetric.MeterProvider
	registry          *prom.Registry
	config            *Config
	tasks             *taskMetrics
	initialized       bool
	initializationErr error
	mu                sync.Mutex
}

// newDisabledService creates a service instance with no-op implementations
func newDisabledService(cfg *Config, initErr error) *Service {
	meter := noop.NewMeterProvider().Meter("assetflow")
	tasks, _ := newTaskMetrics(meter)
	return &Service{
		config:            cfg,
		tasks:             tasks,
		initialized:       false,
		initializationErr: initErr,
	}
}

// NewMonitoringService creates a new monitoring service with Prometheus exporter
func NewMonitoringService(ctx context.Context, cfg *Config) (*Service, error) {
	log := logger.FromContext(ctx)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		log.Debug("Monitoring disabled, using no-op meter")
		return newDisabledService(cfg, nil), nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithoutTargetInfo(),
		prometheus.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("assetflow")
	tasks, err := newTaskMetrics(meter)
	if err != nil {
		return nil, err
	}
	service := &Service{
		exporter:    exporter,
		provider:    provider,
		registry:    registry,
		config:      cfg,
		tasks:       tasks,
		initialized: true,
	}
	InitSystemMetrics(ctx, meter)
	log.Debug("Monitoring service initialized", "file", cfg.File)
	return service, nil
}

// NewMonitoringServiceWithFallback creates a monitoring service with graceful degradation.
// If initialization fails, the error is logged and a no-op service is returned.
func NewMonitoringServiceWithFallback(ctx context.Context, cfg *Config) *Service {
	log := logger.FromContext(ctx)
	service, err := NewMonitoringService(ctx, cfg)
	if err != nil {
		log.Error("Failed to initialize monitoring, using no-op implementation", "error", err)
		return newDisabledService(cfg, err)
	}
	return service
}

// RecordTask counts the files of a finished task run and refreshes the textfile.
func (s *Service) RecordTask(ctx context.Context, task string, result pipeline.RunResult, elapsed time.Duration) {
	s.tasks.record(ctx, task, result, elapsed)
	if err := s.Flush(); err != nil {
		logger.FromContext(ctx).Warn("Failed to write metrics file", "file", s.config.File, "error", err)
	}
}

// Flush writes every registered metric to the configured file. The file is
// replaced atomically, so a collector never reads a partial dump.
func (s *Service) Flush() error {
	if !s.initialized {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir := filepath.Dir(s.config.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prom.WriteToTextfile(s.config.File, s.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Shutdown flushes pending metrics and shuts down the provider
func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	if err := s.Flush(); err != nil {
		return err
	}
	return s.provider.Shutdown(ctx)
}

// IsInitialized returns whether the monitoring service was successfully initialized
func (s *Service) IsInitialized() bool {
	return s.initialized
}

// InitializationError returns any error that occurred during initialization
func (s *Service) InitializationError() error {
	return s.initializationErr
}
