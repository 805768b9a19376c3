/*
Package observability provides monitoring for the workflow builder.

It turns domain.ChangeEvent notifications into Prometheus counters and audit
log lines, and instruments HTTP handlers with request counters and latency
histograms.
*/
package observability
