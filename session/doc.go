// Package session persists the client's current identity session.
//
// # Stores
//
//   - [RedisStore] keeps the session as a JSON blob under one Redis key, so a
//     session survives process restarts (CLI invocations, worker restarts).
//   - [MemoryStore] keeps it in process memory.
//
// Both implement identity.Storage.
//
// # Architecture boundaries
//
// This package only stores and loads. Expiry, refresh and revocation are owned by
// the identity client; the store never inspects tokens.
package session
