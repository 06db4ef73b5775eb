// Package recorder persists the activity feed to PostgreSQL.
//
// Activity items are accepted through a non-blocking Record call, accumulated
// into batches, and flushed on size or interval. Inserts are append-only with
// ON CONFLICT DO NOTHING, so replayed events after a reconnect are harmless.
package recorder
