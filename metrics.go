package mvi

import "github.com/hashicorp/go-metrics"

var (
	MetricStateTransitions  = []string{"mvi", "state", "transitions"}
	MetricStateCount        = []string{"mvi", "state", "count"}
	MetricRouterNavigations = []string{"mvi", "router", "navigations"}
	MetricRouterMisses      = []string{"mvi", "router", "misses"}
	MetricDOMEvents         = []string{"mvi", "dom", "events"}
	MetricDOMEventsRejected = []string{"mvi", "dom", "rejected"}
	MetricRuntimes          = []string{"mvi", "runtimes"}
	MetricSnapshotTapErrors = []string{"mvi", "tap", "error", "count"}
)

type TelemetryLabel string

var (
	LabelRoute  TelemetryLabel = "route"
	LabelReason TelemetryLabel = "reason"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}
