// Package rate is a Redis fixed-window counter.
//
// Every hit runs INCR; the first hit of a window also sets the key's expiry,
// so the window starts at the first attempt and resets when the key expires.
// Policies that use it live in internal/limiters.
package rate
