// Package limiters provides domain limiters built on internal/rate.
//
// [CodeSendLimiter] caps how many one-time codes can be requested for one
// phone number per window. A nil limiter allows everything.
//
// # What this package must NOT do
//
//   - Decide what happens after a limit is hit; the engine owns that.
package limiters
