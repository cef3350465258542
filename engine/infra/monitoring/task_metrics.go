package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/assetflow/engine/infra/monitoring/metrics"
	"github.com/compozy/assetflow/engine/pipeline"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type taskMetrics struct {
	processed metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
}

func newTaskMetrics(meter metric.Meter) (*taskMetrics, error) {
	processed, err := meter.Int64Counter(
		metrics.MetricName("files_processed"),
		metric.WithDescription("Files written successfully by a task run"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processed counter: %w", err)
	}
	failed, err := meter.Int64Counter(
		metrics.MetricName("files_failed"),
		metric.WithDescription("Files that failed to transform or write"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failed counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		metrics.MetricName("task_duration"),
		metric.WithDescription("Wall time of a task run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.TaskDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	return &taskMetrics{processed: processed, failed: failed, duration: duration}, nil
}

func (m *taskMetrics) record(ctx context.Context, task string, res pipeline.RunResult, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("task", task))
	m.processed.Add(ctx, int64(res.Processed), attrs)
	m.failed.Add(ctx, int64(len(res.Failed)), attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
