package monitoring

import (
	"context"

	"github.com/compozy/assetflow/engine/infra/monitoring/metrics"
	"github.com/compozy/assetflow/pkg/logger"
	"github.com/compozy/assetflow/pkg/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InitSystemMetrics records build information as a gauge with version labels.
func InitSystemMetrics(ctx context.Context, meter metric.Meter) {
	log := logger.FromContext(ctx)
	buildInfo, err := meter.Float64Gauge(
		metrics.MetricName("build_info"),
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		log.Error("Failed to create build info gauge", "error", err)
		return
	}
	info := version.Get()
	buildInfo.Record(ctx, 1,
		metric.WithAttributes(
			attribute.String("version", info.Version),
			attribute.String("commit_hash", info.CommitHash),
			attribute.String("go_version", info.GoVersion),
		),
	)
	log.Debug("System metrics initialized", "version", info.Version, "commit", info.CommitHash)
}
