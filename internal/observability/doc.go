// Package observability publishes Prometheus metrics for the sampling
// pipeline.
package observability
