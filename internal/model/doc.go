// Package model defines shared data types used across the chainboard client core.
//
// Conventions:
//   - Timestamps on the wire: int64 milliseconds since Unix epoch
//   - Envelope and request IDs: UUID strings, generated at send time
//   - Payloads: json.RawMessage until a consumer decodes them
package model
