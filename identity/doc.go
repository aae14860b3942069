// Package identity is a small client for a GoTrue-compatible hosted identity
// provider.
//
// # Surface
//
//   - [Client.SignUp] registers an email/password identity with user metadata.
//   - [Client.SignInWithPassword] exchanges credentials for a [Session].
//   - [Client.GetSession] returns the current session, refreshing it when expired.
//   - [Client.SetSession] adopts a token pair received out-of-band (callback links).
//   - [Client.GetUser] fetches the user record for the current session.
//   - [Client.SignOut] revokes the session remotely and always clears it locally.
//
// The current session is kept in a caller-supplied [Storage]. Tokens are opaque
// bearer strings; only the unverified exp/sub claims are read for bookkeeping.
//
// # What this package must NOT do
//
//   - Verify token signatures or evaluate roles/scopes.
//   - Retry failed provider calls.
//   - Interpret provider error messages for control flow.
package identity
