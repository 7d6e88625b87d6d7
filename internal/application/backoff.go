package application

import "time"

// Backoff doubles from base up to max. It is not safe for concurrent use.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

func NewBackoff(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}

	return &Backoff{base: base, max: max, current: base}
}

// Next returns the delay for this failure and advances the counter.
func (b *Backoff) Next() time.Duration {
	delay := b.current
	next := b.current * 2
	if next > b.max || next <= 0 {
		next = b.max
	}
	b.current = next
	return delay
}

// Peek returns the delay Next would return without advancing.
func (b *Backoff) Peek() time.Duration {
	return b.current
}

func (b *Backoff) Reset() {
	b.current = b.base
}
