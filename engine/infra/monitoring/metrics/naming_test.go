package metrics

import "testing"

func TestMetricName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "adds prefix", input: "files_processed", expected: "assetflow_files_processed"},
		{name: "keeps prefixed", input: "assetflow_task_duration", expected: "assetflow_task_duration"},
		{name: "blank returns prefix", input: "", expected: "assetflow_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MetricName(tt.input); got != tt.expected {
				t.Fatalf("MetricName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTaskDurationBuckets(t *testing.T) {
	t.Parallel()
	for i := 1; i < len(TaskDurationBuckets); i++ {
		if TaskDurationBuckets[i] <= TaskDurationBuckets[i-1] {
			t.Fatalf("buckets must increase: %v", TaskDurationBuckets)
		}
	}
}
