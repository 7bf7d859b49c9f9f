/*
Package metrics exposes FlexGraph's Prometheus instrumentation.

All metrics are package-level collectors registered once at init, the
same global-registry pattern the rest of the stack uses for Go runtime
metrics. Three families are defined:

  - Session metrics: invocation counters and per-procedure latency
    histograms, the concrete form of the "per-session metrics" in §4.8.
  - WAL metrics: flush duration and bytes written, per §4.5's durability
    requirement.
  - Fragment metrics: adjacency growth events and outstanding
    read-timestamp gauge, surfacing the version manager's state from §4.5.

Handler returns the promhttp handler for an embedding process to mount;
this package does not start an HTTP server itself.
*/
package metrics
