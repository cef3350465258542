package metrics

import "strings"

const prefix = "assetflow_"

// MetricName prefixes name with the assetflow namespace unless it already has it.
func MetricName(name string) string {
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}
