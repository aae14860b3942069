// Package goAuthClient is the client side of an email/password login with an
// optional phone second factor, backed by a hosted identity provider.
//
// An [Engine] is assembled with [Builder] and is safe for concurrent use. It
// drives three flows:
//
//   - [LoginFlow]: credentials, then a one-time code sent to the phone on the
//     user's profile (or, failing that, their sign-up metadata), then
//     authenticated. Users without a phone skip the second step.
//   - [Engine.HandleCallback]: the page a confirmation link lands on. Tokens
//     in the URL fragment become the current session; confirmed users are
//     redirected to the login page after a delay.
//   - Account operations: [Engine.SignUp], [Engine.LoadDashboard] and
//     [Engine.SignOut].
//
// # Failure handling
//
// Provider and code-service messages reach the caller unchanged. Steps that
// only keep the profile table tidy (backfilling a phone number, creating a
// missing profile row during a callback) never fail the flow they run in;
// their errors are logged, counted and reported in Recovered.
//
// # Architecture boundaries
//
// Orchestration lives in internal/flows and knows nothing about logging,
// metrics or audit. This package owns those concerns and the login state
// machine. identity, verification, session and profile are usable on their
// own.
package goAuthClient
