// Package asyncop implements the cancellable async-operation primitive.
//
// An Operation runs at most one unit of work at a time:
//   - Starting a new run cancels and supersedes the previous one
//   - A superseded run's completion is silently discarded, so a stale
//     response can never overwrite newer state
//   - Observable state follows idle -> loading -> (success | error)
//
// TimerSlot is the companion scheduled-task handle: at most one pending
// timer per slot, and scheduling always cancels the previous timer first.
package asyncop
