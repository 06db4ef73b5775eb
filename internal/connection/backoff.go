package connection

import "time"

// RetryPolicy bounds automatic reconnection. Immutable once the Manager is
// constructed.
type RetryPolicy struct {
	BaseInterval time.Duration
	Cap          time.Duration
	MaxAttempts  int
}

// Delay returns the wait before attempt i (1-indexed):
// min(BaseInterval * 2^(i-1), Cap).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := p.BaseInterval
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.Cap {
			return p.Cap
		}
	}
	if d > p.Cap {
		return p.Cap
	}
	return d
}
