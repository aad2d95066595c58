// Package events implements the outbound event hub.
//
// The hub fans typed events (telemetry changes, upload progress and
// results, safety alerts, emergency triggers) out to SSE and WebSocket
// subscribers, buffering the last N events per vehicle so a reconnecting
// client can resume from its Last-Event-ID.
package events
