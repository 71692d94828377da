// Package infra holds the adapters behind the core interfaces: the SQLite
// registry store, Prometheus and InfluxDB sinks, the MQTT notifier, zerolog
// logging and Sentry monitoring. Core packages never import infra.
package infra
