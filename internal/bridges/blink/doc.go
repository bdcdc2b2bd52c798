// Package blink bridges Blink home-security networks onto the Gray Logic
// MQTT bus.
//
// The bridge owns the current home-screen snapshot (a blink.System) and
// translates between MQTT and the Blink REST client:
//
//	graylogic/command/blink/{index}   → arm/disarm the network at {index}
//	graylogic/ack/blink/{index}       ← accepted / failed acknowledgement
//	graylogic/state/blink/{network}   ← retained armed state per network id
//	graylogic/health/blink            ← retained bridge health
//
// Command topics address networks by position in the last fetched snapshot,
// matching the REST client. Refresh replaces the snapshot; it runs on a
// timer when a refresh interval is configured, and on demand via the API.
//
// Audit logging, InfluxDB telemetry and WebSocket broadcast are optional
// collaborators wired in by main.
package blink
