package connection

import "errors"

var (
	// ErrNotConnected is returned when writing to a channel that is not open.
	ErrNotConnected = errors.New("channel not connected")

	// ErrAlreadyClosed is returned when connecting a channel that was closed.
	ErrAlreadyClosed = errors.New("channel already closed")

	// ErrChannelClosed reports a channel that stopped without a read error.
	ErrChannelClosed = errors.New("channel closed")

	// ErrStaleConnection reports a heartbeat timeout: the channel is open but
	// no pong arrived within twice the probe interval.
	ErrStaleConnection = errors.New("stale connection: no pong received")

	// ErrMaxRetriesExceeded reports that the retry budget is exhausted.
	// The manager stays in StatusError until Reconnect is called.
	ErrMaxRetriesExceeded = errors.New("max reconnect attempts exceeded")

	// ErrSuperseded is returned from a connect attempt that was replaced by a
	// newer Connect or Disconnect before it finished dialing.
	ErrSuperseded = errors.New("connect attempt superseded")
)
