// Package vehicle implements the in-memory vehicle state registry.
//
// One record exists per discovered vehicle, created on its first inbound
// message and never deleted while the process runs; disconnection only flips
// status flags so vehicles can reappear. Each record carries its own lock so
// telemetry merges and mission bookkeeping on unrelated vehicles never
// serialize against each other.
package vehicle
