package ratelimit

import "time"

// Clock supplies the current time to the limiter. The indirection exists so
// tests can drive window expiry deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock backed by time.Now.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
