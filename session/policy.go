package session

import "time"

// ReconnectPolicy decides how long to wait before reconnect attempt n
// (1-based). Implementations must be safe for reuse across sessions.
type ReconnectPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedDelay waits the same interval between every attempt.
type FixedDelay struct {
	Delay time.Duration
}

func (p FixedDelay) NextDelay(int) time.Duration {
	return p.Delay
}

// ExponentialBackoff doubles (by Factor) the wait per attempt, capped at Max.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

func (p ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := p.Factor
	if factor <= 1 {
		factor = 2
	}
	delay := float64(p.Initial)
	for i := 1; i < attempt; i++ {
		delay *= factor
		if p.Max > 0 && delay >= float64(p.Max) {
			return p.Max
		}
	}
	if p.Max > 0 && delay > float64(p.Max) {
		return p.Max
	}
	return time.Duration(delay)
}
