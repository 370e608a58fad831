// Package infra contains technical adapters: the MILP backend, metrics
// exporters, run storage, MQTT publishing and error monitoring. These
// packages depend only on the interfaces defined in the core packages.
package infra
