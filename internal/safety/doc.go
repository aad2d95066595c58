// Package safety implements the periodic safety monitor.
//
// The monitor ticks over every known vehicle, evaluates threshold
// predicates against its latest state, and emits rate-limited alerts.
// The severe violations also trigger emergency actions through the same
// command path operators use, never a side channel.
package safety
