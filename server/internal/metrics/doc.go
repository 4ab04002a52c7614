// Package metrics counts events as they move through the bridge and exposes
// the counts at GET /metrics in the Prometheus text exposition format.
//
// Metrics implements the observer interfaces of the device session and the
// websocket hub. Gauges and counters owned by other components (queue depth,
// connected clients) are attached with GaugeFunc and CounterFunc.
package metrics
