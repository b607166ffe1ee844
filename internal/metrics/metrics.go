// Package metrics registers the prometheus collectors exposed on /metrics.
package metrics

const NostradamusNamespace = "nostradamus"
