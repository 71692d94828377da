// Package metrics defines the sinks that observe factory activity. Sinks
// like PromSink and InfluxSink record wallet creations, implementation
// deployments and rejected operations; several can be combined with
// NewMultiSink. NewSink builds the configured sinks and returns a MultiSink
// automatically when more than one is configured.
package metrics
