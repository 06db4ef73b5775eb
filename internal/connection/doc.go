// Package connection implements the resilient event-channel layer.
//
// The Manager owns one long-lived WebSocket channel to the dashboard server:
//   - Automatic reconnection with capped exponential backoff
//   - Application-level ping/pong heartbeat with staleness detection
//     (a channel with no pong for twice the probe interval is force-closed
//     and treated like an unexpected close)
//   - A replace-wholesale handler registry for connection, activity, stats,
//     and error events
//
// A fresh Channel is built for every connect attempt; nothing is pooled.
package connection
