// Package dashboard holds the client-side dashboard state: the recent
// activity feed and the merged stats snapshot. It consumes events from the
// connection manager and full refreshes from the request gateway, and hands
// out copies so renderers never share memory with the event path.
package dashboard
